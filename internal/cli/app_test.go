package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/liangyou/vodka/pkg/models"
)

// 命令会设置全局日志级别，这些测试不并行执行。

type fakeLister struct {
	remote    []models.CatalogEntry
	local     []models.InstalledRuntime
	best      models.CatalogEntry
	remoteErr error
	bestErr   error

	bestTarget models.Version
	bestSource models.RuntimeSource
}

func (f *fakeLister) RemoteEntries(context.Context) ([]models.CatalogEntry, error) {
	return f.remote, f.remoteErr
}

func (f *fakeLister) LocalRuntimes() ([]models.InstalledRuntime, error) {
	return f.local, nil
}

func (f *fakeLister) BestEntry(_ context.Context, target models.Version, source models.RuntimeSource) (models.CatalogEntry, error) {
	f.bestTarget, f.bestSource = target, source
	return f.best, f.bestErr
}

type fakeInstaller struct {
	feedCalls int
	entries   []models.CatalogEntry
	local     []string
	verify    bool
	verified  bool
	err       error
}

func (f *fakeInstaller) result(v models.Version) (models.InstalledRuntime, error) {
	if f.err != nil {
		return models.InstalledRuntime{}, f.err
	}
	return models.InstalledRuntime{Version: v, Root: "/runtimes/" + v.String() + "/Wine", Verified: f.verified}, nil
}

func (f *fakeInstaller) InstallFeed(context.Context) (models.InstalledRuntime, error) {
	f.feedCalls++
	return f.result(models.MustParseVersion("9.21.0"))
}

func (f *fakeInstaller) InstallEntry(_ context.Context, entry models.CatalogEntry) (models.InstalledRuntime, error) {
	f.entries = append(f.entries, entry)
	return f.result(entry.Version)
}

func (f *fakeInstaller) InstallLocal(_ context.Context, v models.Version, path string, verify bool) (models.InstalledRuntime, error) {
	f.local = append(f.local, path)
	f.verify = verify
	return f.result(v)
}

type fakeUninstaller struct {
	removed   []models.Version
	remaining []models.Version
	err       error
}

func (f *fakeUninstaller) Uninstall(v models.Version) ([]models.Version, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.removed = append(f.removed, v)
	return f.remaining, nil
}

type fakeRegistry struct {
	selectors []models.RuntimeSelector
	err       error
}

func (f *fakeRegistry) ResolveBinFolder(s models.RuntimeSelector) (string, error) {
	f.selectors = append(f.selectors, s)
	if f.err != nil {
		return "", f.err
	}
	if s.IsCustom() {
		return s.CustomPath + "/bin", nil
	}
	return "/runtimes/" + s.Version.String() + "/Wine/bin", nil
}

type fakePlatform struct {
	err error
}

func (f fakePlatform) Validate() error { return f.err }

func newTestApp(buf *bytes.Buffer, s *Services) *App {
	app := NewApp(buf, func(string) (*Services, error) { return s, nil }, "test")
	app.SetErrOutput(io.Discard)
	return app
}

func run(t *testing.T, app *App, args ...string) error {
	t.Helper()
	return app.Run(context.Background(), append(args, "--log-level", "disabled"))
}

func TestAppCatalog(t *testing.T) {
	buf := &bytes.Buffer{}
	lister := &fakeLister{remote: []models.CatalogEntry{{
		Source:      models.SourceCommunity,
		Version:     models.MustParseVersion("9.19.0"),
		DownloadURL: "https://example.com/wine-stable-9.19.tar.xz",
	}}}
	app := newTestApp(buf, &Services{Lister: lister})

	if err := run(t, app, "catalog"); err != nil {
		t.Fatalf("run catalog: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Available runtimes:") || !strings.Contains(output, "9.19.0") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestAppCatalogEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	app := newTestApp(buf, &Services{Lister: &fakeLister{}})

	if err := run(t, app, "catalog"); err != nil {
		t.Fatalf("run catalog: %v", err)
	}
	if !strings.Contains(buf.String(), "No runtimes available.") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestAppList(t *testing.T) {
	buf := &bytes.Buffer{}
	lister := &fakeLister{local: []models.InstalledRuntime{
		{Version: models.MustParseVersion("10.0.0"), Root: "/r/10.0.0/Wine"},
		{Version: models.MustParseVersion("9.5.0"), Root: "/l/Wine", Legacy: true},
	}}
	app := newTestApp(buf, &Services{Lister: lister})

	if err := run(t, app, "list"); err != nil {
		t.Fatalf("run list: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "10.0.0 - /r/10.0.0/Wine") || !strings.Contains(output, "9.5.0 (legacy)") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestAppInstallFromFeed(t *testing.T) {
	buf := &bytes.Buffer{}
	installs := &fakeInstaller{verified: true}
	app := newTestApp(buf, &Services{Installer: installs, Platform: fakePlatform{}})

	if err := run(t, app, "install"); err != nil {
		t.Fatalf("install command failed: %v", err)
	}
	if installs.feedCalls != 1 {
		t.Fatalf("feed install not invoked: %d", installs.feedCalls)
	}
	if strings.Contains(buf.String(), "not verified") {
		t.Fatalf("unexpected warning: %s", buf.String())
	}
}

func TestAppInstallResolvesCatalogEntry(t *testing.T) {
	buf := &bytes.Buffer{}
	installs := &fakeInstaller{}
	lister := &fakeLister{best: models.CatalogEntry{
		Source:      models.SourceCommunity,
		Version:     models.MustParseVersion("9.19.0"),
		DownloadURL: "https://example.com/wine-stable-9.19.tar.xz",
	}}
	app := newTestApp(buf, &Services{Lister: lister, Installer: installs})

	if err := run(t, app, "install", "wine-9.21", "--source", "community"); err != nil {
		t.Fatalf("install command failed: %v", err)
	}
	if lister.bestTarget != models.MustParseVersion("9.21.0") || lister.bestSource != models.SourceCommunity {
		t.Fatalf("unexpected lookup: %s %s", lister.bestTarget, lister.bestSource)
	}
	if len(installs.entries) != 1 || installs.entries[0].Version.String() != "9.19.0" {
		t.Fatalf("installer not invoked properly: %#v", installs.entries)
	}
	output := buf.String()
	if !strings.Contains(output, "Using 9.19.0 for requested 9.21.0") || !strings.Contains(output, "checksum not verified") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestAppInstallLocalArchive(t *testing.T) {
	buf := &bytes.Buffer{}
	installs := &fakeInstaller{verified: true}
	app := newTestApp(buf, &Services{Installer: installs})

	if err := run(t, app, "install", "9.21", "--archive", "/tmp/wine.tar.xz", "--verify"); err != nil {
		t.Fatalf("install command failed: %v", err)
	}
	if len(installs.local) != 1 || installs.local[0] != "/tmp/wine.tar.xz" || !installs.verify {
		t.Fatalf("local install not invoked properly: %v verify=%v", installs.local, installs.verify)
	}

	if err := run(t, app, "install", "--archive", "/tmp/wine.tar.xz"); err == nil {
		t.Fatal("expected error without version")
	}
}

func TestAppInstallPlatformCheck(t *testing.T) {
	buf := &bytes.Buffer{}
	installs := &fakeInstaller{}
	app := newTestApp(buf, &Services{Installer: installs, Platform: fakePlatform{err: errors.New("platform: unsupported operating system windows")}})

	if err := run(t, app, "install"); err == nil {
		t.Fatal("expected platform error")
	}
	if installs.feedCalls != 0 {
		t.Fatal("installer must not run on unsupported platform")
	}
}

func TestAppUninstall(t *testing.T) {
	buf := &bytes.Buffer{}
	u := &fakeUninstaller{remaining: []models.Version{models.MustParseVersion("10.0.0")}}
	app := newTestApp(buf, &Services{Uninstaller: u})

	if err := run(t, app, "uninstall", "9.21"); err != nil {
		t.Fatalf("uninstall failed: %v", err)
	}
	if len(u.removed) != 1 || u.removed[0].String() != "9.21.0" {
		t.Fatalf("uninstaller not invoked: %#v", u.removed)
	}
	if !strings.Contains(buf.String(), "Remaining versions:\n  10.0.0") {
		t.Fatalf("unexpected output: %s", buf.String())
	}

	if err := run(t, app, "uninstall", "not-a-version"); err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestAppBin(t *testing.T) {
	buf := &bytes.Buffer{}
	reg := &fakeRegistry{}
	app := newTestApp(buf, &Services{Registry: reg})

	if err := run(t, app, "bin", "9.21"); err != nil {
		t.Fatalf("bin failed: %v", err)
	}
	if err := run(t, app, "bin", "--custom", "/opt/wine"); err != nil {
		t.Fatalf("bin --custom failed: %v", err)
	}
	if len(reg.selectors) != 2 || reg.selectors[0].IsCustom() || !reg.selectors[1].IsCustom() {
		t.Fatalf("unexpected selectors: %#v", reg.selectors)
	}
	output := buf.String()
	if !strings.Contains(output, "/runtimes/9.21.0/Wine/bin") || !strings.Contains(output, "/opt/wine/bin") {
		t.Fatalf("unexpected output: %s", output)
	}

	if err := run(t, app, "bin", "9.21", "--custom", "/opt/wine"); err == nil {
		t.Fatal("expected error for both version and --custom")
	}
	if err := run(t, app, "bin"); err == nil {
		t.Fatal("expected error without selector")
	}
}

func TestAppBinNotInstalled(t *testing.T) {
	buf := &bytes.Buffer{}
	reg := &fakeRegistry{err: &models.NotInstalledError{Version: models.MustParseVersion("9.21.0")}}
	app := newTestApp(buf, &Services{Registry: reg})

	err := run(t, app, "bin", "9.21")
	if !errors.Is(err, models.ErrRuntimeNotInstalled) {
		t.Fatalf("expected not installed error, got %v", err)
	}
}

func TestAppVersionSkipsServices(t *testing.T) {
	buf := &bytes.Buffer{}
	app := NewApp(buf, func(string) (*Services, error) {
		return nil, errors.New("factory must not be called")
	}, "1.2.3")
	app.SetErrOutput(io.Discard)

	if err := run(t, app, "version"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), "vodka version 1.2.3") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestAppPassesConfigFile(t *testing.T) {
	buf := &bytes.Buffer{}
	var got string
	app := NewApp(buf, func(path string) (*Services, error) {
		got = path
		return &Services{Lister: &fakeLister{}}, nil
	}, "test")
	app.SetErrOutput(io.Discard)

	if err := run(t, app, "list", "--config", "/etc/vodka.yaml"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if got != "/etc/vodka.yaml" {
		t.Fatalf("config file not passed: %q", got)
	}
}

func TestAppInvalidLogLevel(t *testing.T) {
	app := newTestApp(&bytes.Buffer{}, &Services{})
	if err := app.Run(context.Background(), []string{"list", "--log-level", "loud"}); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestProgressPrinter(t *testing.T) {
	buf := &bytes.Buffer{}
	samples := []models.Progress{
		{CompletedBytes: 0, TotalBytes: 2048},
		{CompletedBytes: 1024, TotalBytes: 2048},
		{CompletedBytes: 1025, TotalBytes: 2048},
		{CompletedBytes: 2048, TotalBytes: 2048},
	}
	ProgressPrinter(buf)(func(yield func(models.Progress) bool) {
		for _, p := range samples {
			if !yield(p) {
				return
			}
		}
	})

	output := buf.String()
	if strings.Count(output, "\r") != 3 {
		t.Fatalf("expected duplicate percentages to be skipped: %q", output)
	}
	if !strings.Contains(output, "100% (2.0 KiB / 2.0 KiB)") || !strings.HasSuffix(output, "\n") {
		t.Fatalf("unexpected output: %q", output)
	}
}
