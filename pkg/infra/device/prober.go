package device

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/m-mizutani/ctxlog"
)

const nvidiaDriverVersion = "/proc/driver/nvidia/version"

// Prober inspects the local host for compute backends
type Prober struct {
	goos     string
	goarch   string
	getenv   func(string) (string, bool)
	stat     func(string) (os.FileInfo, error)
	lookPath func(string) (string, error)
}

var _ interfaces.DeviceProber = (*Prober)(nil)

// Option configures the Prober. Used to replace host lookups in tests.
type Option func(*Prober)

// WithPlatform overrides runtime.GOOS and runtime.GOARCH
func WithPlatform(goos, goarch string) Option {
	return func(p *Prober) {
		p.goos = goos
		p.goarch = goarch
	}
}

// WithEnv overrides environment variable lookup
func WithEnv(getenv func(string) (string, bool)) Option {
	return func(p *Prober) {
		p.getenv = getenv
	}
}

// WithStat overrides file existence checks
func WithStat(stat func(string) (os.FileInfo, error)) Option {
	return func(p *Prober) {
		p.stat = stat
	}
}

// WithLookPath overrides executable lookup
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(p *Prober) {
		p.lookPath = lookPath
	}
}

// NewProber creates a Prober for the running host
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
		getenv:   os.LookupEnv,
		stat:     os.Stat,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CUDAAvailable reports whether an NVIDIA driver is loaded and not hidden by
// CUDA_VISIBLE_DEVICES
func (p *Prober) CUDAAvailable(ctx context.Context) bool {
	logger := ctxlog.From(ctx)

	if v, ok := p.getenv("CUDA_VISIBLE_DEVICES"); ok {
		v = strings.TrimSpace(v)
		if v == "" || v == "-1" {
			logger.Debug("CUDA devices hidden by CUDA_VISIBLE_DEVICES", "value", v)
			return false
		}
	}

	if p.goos != "linux" && p.goos != "windows" {
		return false
	}

	if _, err := p.stat(nvidiaDriverVersion); err == nil {
		return true
	}
	if path, err := p.lookPath("nvidia-smi"); err == nil {
		logger.Debug("Found nvidia-smi", "path", path)
		return true
	}
	return false
}

// AppleGPUAvailable reports whether the Metal backend of Apple Silicon is usable
func (p *Prober) AppleGPUAvailable(ctx context.Context) bool {
	return p.goos == "darwin" && p.goarch == "arm64"
}
