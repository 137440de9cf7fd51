// Command kernelsim drives the virtual-memory subsystem and syscall gate
// against an in-memory filesystem and console, the same surface a real
// kernel's page-fault handler and trap dispatcher would present, so the
// testable properties of Section 8 can be exercised from outside a test
// binary.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/tfdavids/pintos/internal/config"
	"github.com/tfdavids/pintos/src/console"
	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/frame"
	"github.com/tfdavids/pintos/src/fs"
	"github.com/tfdavids/pintos/src/kernelctx"
	"github.com/tfdavids/pintos/src/mem"
	"github.com/tfdavids/pintos/src/swap"
	"github.com/tfdavids/pintos/src/syscall"
)

func main() {
	var cfgPath string
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "path to a kernelsim YAML config")
	flag.BoolVar(&verbose, "v", false, "debug-level logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, err := buildContext(cfg)
	if err != nil {
		logger.Error("build kernel context", "err", err)
		os.Exit(1)
	}

	status := runDemo(ctx, logger)
	os.Exit(status)
}

func buildContext(cfg config.Config) (*kernelctx.Context, error) {
	stackBase, err := strconv.ParseUint(cfg.Stack.BaseHex, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("parse stack.base_hex: %w", err)
	}
	stackLimit, err := strconv.ParseUint(cfg.Stack.LimitHex, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("parse stack.limit_hex: %w", err)
	}

	pool := mem.NewPool(cfg.Memory.UserFrames)
	frames := frame.NewTable(pool)
	dev := swap.NewMemDevice(cfg.Memory.SwapSlots * swap.SectorsPerPage)
	sw := swap.New(dev)
	con := console.New(os.Stdout, cfg.Console.InputBuffer)

	return kernelctx.New(frames, sw, fs.NewMemfs(), con, uintptr(stackBase), uintptr(stackLimit)), nil
}

// runDemo exercises a minimal end-to-end path through the gate: create a
// file, write to it via a mapped-in user buffer, read it back, close it, and
// exit.
// It stands in for the interactive workload a real trap handler would feed
// the gate one syscall at a time.
func runDemo(ctx *kernelctx.Context, logger *slog.Logger) int {
	gate := syscall.New(ctx)
	proc := ctx.NewProc(1)

	bufAddr := uintptr(0x08048000)
	if err := proc.AS.AddAnon(bufAddr, true); err != 0 {
		logger.Error("install scratch page", "err", err)
		return 1
	}

	nameAddr := bufAddr + uintptr(mem.PGSIZE)
	if err := proc.AS.AddAnon(nameAddr, true); err != 0 {
		logger.Error("install name page", "err", err)
		return 1
	}
	if err := proc.AS.Pin(nameAddr, nameAddr); err == 0 {
		proc.AS.WriteBytes(nameAddr, append([]byte("greeting.txt"), 0))
		proc.AS.Unpin(nameAddr)
	}

	createRes := gate.Syscall(proc, defs.SYS_CREATE, syscall.Args{int(nameAddr), 64}, bufAddr)
	logger.Info("CREATE", "ok", createRes == 1)

	openRes := gate.Syscall(proc, defs.SYS_OPEN, syscall.Args{int(nameAddr)}, bufAddr)
	logger.Info("OPEN", "fd", openRes)
	if openRes < 0 {
		return 1
	}

	if err := proc.AS.Pin(bufAddr, bufAddr); err == 0 {
		proc.AS.WriteBytes(bufAddr, []byte("hello, kernelsim\n"))
		proc.AS.Unpin(bufAddr)
	}

	writeRes := gate.Syscall(proc, defs.SYS_WRITE, syscall.Args{openRes, int(bufAddr), 17}, bufAddr)
	logger.Info("WRITE", "n", writeRes)

	gate.Syscall(proc, defs.SYS_SEEK, syscall.Args{openRes, 0}, bufAddr)
	readRes := gate.Syscall(proc, defs.SYS_READ, syscall.Args{openRes, int(bufAddr), 17}, bufAddr)
	logger.Info("READ", "n", readRes)

	gate.Syscall(proc, defs.SYS_CLOSE, syscall.Args{openRes}, bufAddr)
	gate.Syscall(proc, defs.SYS_EXIT, syscall.Args{0}, bufAddr)

	status, _ := proc.ExitStatus()
	logger.Info("process exited", "status", status, "spt_pages_remaining", proc.AS.Len())
	return 0
}
