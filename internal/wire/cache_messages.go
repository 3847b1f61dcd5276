package wire

import "google.golang.org/protobuf/encoding/protowire"

// Status codes carried in cache RPC responses.
const (
	StatusHit     uint32 = 0
	StatusMiss    uint32 = 1
	StatusError   uint32 = 2
	StatusSuccess uint32 = 0 // reused for Put/Delete responses; distinct enum space from Get's
)

// GetRequest asks for the entry stored at Key.
//
//	message GetRequest { string key = 1; }
type GetRequest struct {
	Key string
}

func (r *GetRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, r.Key)
	return b
}

func UnmarshalGetRequest(data []byte) (*GetRequest, error) {
	r := &GetRequest{}
	return r, forEachField(data, func(num protowire.Number, typ protowire.Type, d []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeString(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.Key = v
			return n, nil
		}
		return skipField(d, typ)
	})
}

// GetResponse reports the outcome of a GetRequest.
//
//	message GetResponse { uint32 status = 1; CacheEntry entry = 2; string error_message = 3; }
type GetResponse struct {
	Status       uint32
	Entry        *CacheEntry
	ErrorMessage string
}

func (r *GetResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Status))
	if r.Entry != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Entry.Marshal())
	}
	if r.ErrorMessage != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, r.ErrorMessage)
	}
	return b
}

func UnmarshalGetResponse(data []byte) (*GetResponse, error) {
	r := &GetResponse{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, d []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.Status = uint32(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			entry, err := UnmarshalCacheEntry(v)
			if err != nil {
				return 0, err
			}
			r.Entry = entry
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.ErrorMessage = v
			return n, nil
		default:
			return skipField(d, typ)
		}
	})
	return r, err
}

// PutRequest writes Entry at Key.
//
//	message PutRequest { string key = 1; CacheEntry entry = 2; }
type PutRequest struct {
	Key   string
	Entry CacheEntry
}

func (r *PutRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, r.Key)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Entry.Marshal())
	return b
}

func UnmarshalPutRequest(data []byte) (*PutRequest, error) {
	r := &PutRequest{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, d []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.Key = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			entry, err := UnmarshalCacheEntry(v)
			if err != nil {
				return 0, err
			}
			r.Entry = *entry
			return n, nil
		default:
			return skipField(d, typ)
		}
	})
	return r, err
}

// PutResponse reports the outcome of a PutRequest.
//
//	message PutResponse { uint32 status = 1; string error_message = 2; }
type PutResponse struct {
	Status       uint32
	ErrorMessage string
}

func (r *PutResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Status))
	if r.ErrorMessage != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, r.ErrorMessage)
	}
	return b
}

func UnmarshalPutResponse(data []byte) (*PutResponse, error) {
	r := &PutResponse{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, d []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.Status = uint32(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.ErrorMessage = v
			return n, nil
		default:
			return skipField(d, typ)
		}
	})
	return r, err
}

// DeleteRequest removes the entry stored at Key.
//
//	message DeleteRequest { string key = 1; }
type DeleteRequest struct {
	Key string
}

func (r *DeleteRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, r.Key)
	return b
}

func UnmarshalDeleteRequest(data []byte) (*DeleteRequest, error) {
	r := &DeleteRequest{}
	return r, forEachField(data, func(num protowire.Number, typ protowire.Type, d []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeString(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.Key = v
			return n, nil
		}
		return skipField(d, typ)
	})
}

// DeleteResponse reports the outcome of a DeleteRequest.
//
//	message DeleteResponse { uint32 status = 1; string error_message = 2; }
type DeleteResponse struct {
	Status       uint32
	ErrorMessage string
}

func (r *DeleteResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Status))
	if r.ErrorMessage != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, r.ErrorMessage)
	}
	return b
}

func UnmarshalDeleteResponse(data []byte) (*DeleteResponse, error) {
	r := &DeleteResponse{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, d []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.Status = uint32(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(d)
			if n < 0 {
				return 0, ErrMalformedMessage
			}
			r.ErrorMessage = v
			return n, nil
		default:
			return skipField(d, typ)
		}
	})
	return r, err
}

// forEachField walks data as a sequence of tag-prefixed fields, calling fn
// with each field's number, wire type, and the remaining buffer starting
// at that field's value. fn must return how many bytes of its value it
// consumed. This is the shared decode loop every Unmarshal* above uses.
func forEachField(data []byte, fn func(num protowire.Number, typ protowire.Type, d []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrMalformedMessage
		}
		data = data[n:]
		consumed, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		data = data[consumed:]
	}
	return nil
}
