//go:build windows

package ssh

import "errors"

type Server struct {
	ListenAddress string
	HalaliBinary  string
	GameAddress   string
}

func (s *Server) Host() error {
	return errors.New("ssh hosting is unsupported on windows")
}
