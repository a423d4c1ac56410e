// Package supervisor prepares the guest rootfs skeleton, launches the
// guest's init process with a controlled environment, and streams its
// stdio to a log (§4.4). It owns no resources of the other components —
// it is purely a process launcher.
package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"golang.org/x/sys/unix"
)

// skeletonDirs are the rootfs directories the guest expects to exist
// before init starts (§4.4). Creation is best-effort.
var skeletonDirs = []string{
	"dev/input",
	"dev/socket",
	"dev/maps",
	"dev/vbinder",
	"dev/vndbinder",
	"dev/hwbinder",
	"dev/graphics",
	"dev/shm",
	"data/system",
}

// Config holds everything the supervisor needs to launch the guest.
type Config struct {
	RootFS string
	Loader string

	Width, Height, DPI int

	GrallocEnabled bool
	GrallocSocket  string

	// Verbose selects line-piped structured logging of stdio instead of
	// redirecting straight to a log file.
	Verbose bool
}

// Supervisor launches and supervises one guest init process.
type Supervisor struct {
	cfg Config
	log zerolog.Logger
}

// New creates a supervisor for cfg.
func New(cfg Config, log zerolog.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, log: log.With().Str("component", "supervisor").Logger()}
}

// PrepareRootFS creates the skeleton directories under cfg.RootFS.
// Failure to create any one directory is warned but not fatal (§4.4).
func (s *Supervisor) PrepareRootFS() {
	for _, dir := range skeletonDirs {
		path := filepath.Join(s.cfg.RootFS, dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			s.log.Warn().Err(err).Str("dir", path).Msg("failed to create rootfs skeleton directory")
		}
	}
}

// ValidateInit checks that <rootfs>/init exists, returning an error the
// caller should treat as fatal per §7's "Configuration" taxonomy.
func (s *Supervisor) ValidateInit() error {
	initPath := filepath.Join(s.cfg.RootFS, "init")
	if _, err := os.Stat(initPath); err != nil {
		return fmt.Errorf("guest init not found at %s: %w", initPath, err)
	}
	return nil
}

// Run spawns ./init with working directory set to the rootfs and the
// environment enriched per §4.4/§6, redirects its stdio, and waits for
// exit. It returns once the child has exited; there is no restart
// policy.
func (s *Supervisor) Run() error {
	cmd := exec.Command("./init")
	cmd.Dir = s.cfg.RootFS
	cmd.Env = s.buildEnv()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach guest stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attach guest stderr: %w", err)
	}

	var logFile *os.File
	if !s.cfg.Verbose {
		logPath := filepath.Join(filepath.Dir(s.cfg.RootFS), "log.txt")
		logFile, err = os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			s.log.Warn().Err(err).Str("path", logPath).Msg("failed to open container log file, falling back to line logging")
		}
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start guest init: %w", err)
	}
	s.log.Info().Int("pid", cmd.Process.Pid).Msg("guest init started")

	// Two log-pump goroutines (stdout, stderr), managed with a
	// panic-safe WaitGroup per the pack's concurrency idiom rather than
	// a raw sync.WaitGroup.
	var pumps conc.WaitGroup
	pumps.Go(func() { s.pumpLog("stdout", stdout, logFile) })
	pumps.Go(func() { s.pumpLog("stderr", stderr, logFile) })

	err = cmd.Wait()
	pumps.Wait()
	if logFile != nil {
		logFile.Close()
	}

	if err != nil {
		s.log.Info().Err(err).Msg("guest init exited with error")
	} else {
		s.log.Info().Msg("guest init exited")
	}
	reportExitStatus(s.log, cmd)
	return nil
}

// reportExitStatus logs the guest's exit status and whether it was
// signaled via x/sys/unix's WaitStatus, the pack's preferred surface for
// process accounting over bare os.ProcessState string formatting.
// Resource usage is not reported.
func reportExitStatus(log zerolog.Logger, cmd *exec.Cmd) {
	state := cmd.ProcessState
	if state == nil {
		return
	}
	// ProcessState.Sys() holds a syscall.WaitStatus; convert it to the
	// x/sys/unix type of the same layout.
	if sws, ok := state.Sys().(syscall.WaitStatus); ok {
		ws := unix.WaitStatus(sws)
		log.Info().
			Int("exit_status", ws.ExitStatus()).
			Bool("signaled", ws.Signaled()).
			Msg("guest init wait status")
	}
}

func (s *Supervisor) pumpLog(stream string, r io.Reader, logFile *os.File) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if logFile != nil {
				_, _ = logFile.Write(buf[:n])
			} else {
				s.log.Info().Str("stream", stream).Str("guest", string(buf[:n])).Msg("guest output")
			}
		}
		if err != nil {
			return
		}
	}
}

// buildEnv assembles the guest init's environment: the host environment
// enriched with TYLOADER, display hints, ADB enablement, and the gralloc
// variables advertised by §6.
func (s *Supervisor) buildEnv() []string {
	env := os.Environ()
	if s.cfg.Loader != "" {
		env = append(env, "TYLOADER="+s.cfg.Loader)
	}
	env = append(env,
		fmt.Sprintf("REDROID_WIDTH=%d", s.cfg.Width),
		fmt.Sprintf("REDROID_HEIGHT=%d", s.cfg.Height),
		fmt.Sprintf("REDROID_DPI=%d", s.cfg.DPI),
		"REDROID_ADB_ENABLED=1",
	)
	if s.cfg.GrallocEnabled {
		env = append(env,
			"TWOYI_GRALLOC_ENABLED=1",
			"TWOYI_GRALLOC_SOCKET="+s.cfg.GrallocSocket,
		)
	}
	return env
}
