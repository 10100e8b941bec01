package capture

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsafeName = errors.New("username can not be used as a directory name")

// Session owns the verified images of one registration run. Everything it
// holds lives under Dir and is removed by Cleanup.
type Session struct {
	Username string
	Dir      string
	Target   int
	Images   []string
}

// NewSession places the session in root/username. The username must be a
// single path element so that Cleanup never reaches outside root.
func NewSession(root, username string, target int) (*Session, error) {
	if !safeName(username) {
		return nil, errors.Wrapf(ErrUnsafeName, "%q", username)
	}
	dir := filepath.Join(root, username)
	if filepath.Dir(dir) != filepath.Clean(root) {
		return nil, errors.Wrapf(ErrUnsafeName, "%q", username)
	}
	return &Session{
		Username: username,
		Dir:      dir,
		Target:   target,
	}, nil
}

func safeName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (s *Session) Remaining() int {
	if n := s.Target - len(s.Images); n > 0 {
		return n
	}
	return 0
}

// Add appends verified images, never beyond Target. Extras are deleted.
func (s *Session) Add(paths ...string) {
	for _, p := range paths {
		if len(s.Images) >= s.Target {
			_ = os.Remove(p)
			continue
		}
		s.Images = append(s.Images, p)
	}
}

func (s *Session) Complete() bool {
	return len(s.Images) >= s.Target
}

// Cleanup removes the session directory and everything in it.
func (s *Session) Cleanup() error {
	s.Images = nil
	if err := os.RemoveAll(s.Dir); err != nil {
		return errors.Wrapf(err, "could not remove %s", s.Dir)
	}
	return nil
}
