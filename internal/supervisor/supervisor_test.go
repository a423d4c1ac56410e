package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestPrepareRootFSCreatesSkeleton(t *testing.T) {
	root := t.TempDir()
	s := New(Config{RootFS: root}, zerolog.Nop())
	s.PrepareRootFS()

	for _, dir := range skeletonDirs {
		if _, err := os.Stat(filepath.Join(root, dir)); err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
		}
	}
}

func TestValidateInitMissing(t *testing.T) {
	root := t.TempDir()
	s := New(Config{RootFS: root}, zerolog.Nop())
	if err := s.ValidateInit(); err == nil {
		t.Fatal("expected error when init is absent")
	}
}

func TestValidateInitPresent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "init"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := New(Config{RootFS: root}, zerolog.Nop())
	if err := s.ValidateInit(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestBuildEnvIncludesDisplayHints(t *testing.T) {
	s := New(Config{
		RootFS: "/rootfs", Loader: "/loader", Width: 1080, Height: 1920, DPI: 240,
		GrallocEnabled: true, GrallocSocket: "/rootfs/dev/gralloc",
	}, zerolog.Nop())

	env := s.buildEnv()
	want := map[string]bool{
		"TYLOADER=/loader":                        false,
		"REDROID_WIDTH=1080":                      false,
		"REDROID_HEIGHT=1920":                     false,
		"REDROID_DPI=240":                         false,
		"REDROID_ADB_ENABLED=1":                   false,
		"TWOYI_GRALLOC_ENABLED=1":                  false,
		"TWOYI_GRALLOC_SOCKET=/rootfs/dev/gralloc": false,
	}
	for _, kv := range env {
		if _, ok := want[kv]; ok {
			want[kv] = true
		}
	}
	for kv, found := range want {
		if !found {
			t.Errorf("expected env to contain %q", kv)
		}
	}
}

func TestBuildEnvOmitsGrallocWhenDisabled(t *testing.T) {
	s := New(Config{RootFS: "/rootfs", GrallocEnabled: false}, zerolog.Nop())
	for _, kv := range s.buildEnv() {
		if kv == "TWOYI_GRALLOC_ENABLED=1" {
			t.Fatalf("gralloc env should be absent when disabled")
		}
	}
}
