package cluster

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"

	"github.com/ppriyankuu/gokv/internal/gossip"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// gossipListener accepts inbound gossip connections and hands each frame
// to a gossip.Service for handling, writing back whatever reply the
// service produces. gossip.Service itself owns no network accept loop —
// only the client-side Transport — so the node facade supplies one, same
// division of labor as cacheRPCServer does for cache RPC.
type gossipListener struct {
	svc *gossip.Service

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

func newGossipListener(svc *gossip.Service) *gossipListener {
	return &gossipListener{svc: svc}
}

func (g *gossipListener) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.listener = ln
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("cluster: gossip accept error: %v", err)
				return
			}
			g.wg.Add(1)
			go func() {
				defer g.wg.Done()
				g.handleConn(conn)
			}()
		}
	}()
	return nil
}

func (g *gossipListener) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		frame, err := wire.ReadGossipFrame(conn)
		if err != nil {
			return
		}
		msg, err := wire.UnmarshalGossipMessage(frame.Payload)
		if err != nil {
			return
		}
		reply := g.svc.HandleMessage(context.Background(), msg)
		if err := wire.WriteGossipFrame(conn, wire.GossipFrame{Payload: reply.Marshal()}); err != nil {
			return
		}
	}
}

func (g *gossipListener) close() {
	g.mu.Lock()
	ln := g.listener
	g.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	g.wg.Wait()
}
