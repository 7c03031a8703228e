package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// writePIDFile records the current pid. A pid file left by a live process
// is an error; a stale one is replaced.
func writePIDFile(path string) error {
	if pid, err := ReadPID(path); err == nil && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

func removePIDFile(path string) {
	if pid, err := ReadPID(path); err == nil && pid == os.Getpid() {
		os.Remove(path)
	}
}

// ReadPID returns the pid recorded at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file %s: %w", path, err)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
