package apifake

import (
	"net/http"
	"sync"
)

type faultKind int

const (
	faultStatus faultKind = iota
	faultDrop
	faultHang
)

type fault struct {
	kind      faultKind
	status    int
	remaining int
}

// Fail makes the next times requests to path answer status. times <= 0 means
// until ClearFaults.
func (s *Server) Fail(path string, status, times int) {
	s.addFault(path, &fault{kind: faultStatus, status: status, remaining: times})
}

// Drop makes the next times requests to path lose their connection without a response.
func (s *Server) Drop(path string, times int) {
	s.addFault(path, &fault{kind: faultDrop, remaining: times})
}

// Hang makes the next times requests to path block until the client gives up or
// the server closes.
func (s *Server) Hang(path string, times int) {
	s.addFault(path, &fault{kind: faultHang, remaining: times})
}

func (s *Server) ClearFaults() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.faults = map[string][]*fault{}
}

// HoldRefresh parks refresh calls until the returned release func is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.lock.Lock()
	s.refreshGate = gate
	s.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			if s.refreshGate == gate {
				s.refreshGate = nil
				close(gate)
			}
			s.lock.Unlock()
		})
	}
}

func (s *Server) addFault(path string, f *fault) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.faults[path] = append(s.faults[path], f)
}

// takeFault pops the next fault for path, if any.
func (s *Server) takeFault(path string) *fault {
	s.lock.Lock()
	defer s.lock.Unlock()
	queue := s.faults[path]
	if len(queue) == 0 {
		return nil
	}
	f := queue[0]
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			s.faults[path] = queue[1:]
		}
	}
	return f
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := s.takeFault(r.URL.Path)
		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		switch f.kind {
		case faultStatus:
			writeError(w, f.status, http.StatusText(f.status))
		case faultDrop:
			conn, _, err := http.NewResponseController(w).Hijack()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "drop failed")
				return
			}
			_ = conn.Close()
		case faultHang:
			select {
			case <-r.Context().Done():
			case <-s.hang:
			}
		}
	})
}
