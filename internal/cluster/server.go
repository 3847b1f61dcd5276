package cluster

import (
	"errors"
	"log"
	"net"
	"sync"

	"github.com/ppriyankuu/gokv/internal/cache"
	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// cacheRPCServer accepts cache-RPC connections from peer coordinators and
// dispatches each request frame against the local Cache. One connection
// serves many sequential requests, mirroring the client side's connection
// reuse in rpcClient.
type cacheRPCServer struct {
	cache *cache.Cache

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

func newCacheRPCServer(c *cache.Cache) *cacheRPCServer {
	return &cacheRPCServer{cache: c}
}

// serve listens on addr and accepts connections until close is called.
func (s *cacheRPCServer) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("cluster: cache rpc accept error: %v", err)
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConn(conn)
			}()
		}
	}()
	return nil
}

func (s *cacheRPCServer) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		frame, err := wire.ReadCacheFrame(conn)
		if err != nil {
			return
		}
		reply, err := s.dispatch(frame)
		if err != nil {
			log.Printf("cluster: cache rpc dispatch error: %v", err)
			return
		}
		if err := wire.WriteCacheFrame(conn, reply); err != nil {
			return
		}
	}
}

func (s *cacheRPCServer) dispatch(frame wire.CacheFrame) (wire.CacheFrame, error) {
	switch frame.Type {
	case wire.FrameGetRequest:
		req, err := wire.UnmarshalGetRequest(frame.Payload)
		if err != nil {
			return wire.CacheFrame{}, err
		}
		resp := s.handleGet(req)
		return wire.CacheFrame{Type: wire.FrameGetResponse, Payload: resp.Marshal()}, nil

	case wire.FramePutRequest:
		req, err := wire.UnmarshalPutRequest(frame.Payload)
		if err != nil {
			return wire.CacheFrame{}, err
		}
		resp := s.handlePut(req)
		return wire.CacheFrame{Type: wire.FramePutResponse, Payload: resp.Marshal()}, nil

	case wire.FrameDeleteRequest:
		req, err := wire.UnmarshalDeleteRequest(frame.Payload)
		if err != nil {
			return wire.CacheFrame{}, err
		}
		resp := s.handleDelete(req)
		return wire.CacheFrame{Type: wire.FrameDeleteResponse, Payload: resp.Marshal()}, nil

	default:
		return wire.CacheFrame{}, errors.New("cluster: unexpected frame type on cache rpc connection")
	}
}

func (s *cacheRPCServer) handleGet(req *wire.GetRequest) *wire.GetResponse {
	key, err := kv.NewKey(req.Key)
	if err != nil {
		return &wire.GetResponse{Status: wire.StatusError, ErrorMessage: err.Error()}
	}
	val, ok := s.cache.Get(key)
	if !ok {
		return &wire.GetResponse{Status: wire.StatusMiss}
	}
	entry := valueToEntry(val)
	return &wire.GetResponse{Status: wire.StatusHit, Entry: &entry}
}

func (s *cacheRPCServer) handlePut(req *wire.PutRequest) *wire.PutResponse {
	key, err := kv.NewKey(req.Key)
	if err != nil {
		return &wire.PutResponse{Status: wire.StatusError, ErrorMessage: err.Error()}
	}
	if err := s.cache.Put(key, entryToValue(&req.Entry)); err != nil {
		return &wire.PutResponse{Status: wire.StatusError, ErrorMessage: err.Error()}
	}
	return &wire.PutResponse{Status: wire.StatusSuccess}
}

func (s *cacheRPCServer) handleDelete(req *wire.DeleteRequest) *wire.DeleteResponse {
	key, err := kv.NewKey(req.Key)
	if err != nil {
		return &wire.DeleteResponse{Status: wire.StatusError, ErrorMessage: err.Error()}
	}
	if err := s.cache.Delete(key); err != nil {
		return &wire.DeleteResponse{Status: wire.StatusError, ErrorMessage: err.Error()}
	}
	return &wire.DeleteResponse{Status: wire.StatusSuccess}
}

func (s *cacheRPCServer) close() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
}
