package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/config"
	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/server"
	"github.com/muurk/ppmsteg/internal/steg"
)

// coverImage is a 4x4 image with room for a five byte message
var coverImage = []byte("P6\n4 4\n255\n" + strings.Repeat("\x80", 48))

// noiseImage decodes to 0xff in its first chunk
var noiseImage = []byte("P6\n4 4\n255\n" + strings.Repeat("\x81", 48))

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes a fresh command tree with its own config file in dir
func runCLI(t *testing.T, dir, stdin string, args ...string) cliResult {
	t.Helper()
	t.Setenv(logging.LogLevelEnvVar, "")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))

	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeImage(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)

	res := runCLI(t, dir, "", "encode", cover, "-m", "hello")
	if res.err != nil {
		t.Fatalf("encode error = %v\nstderr: %s", res.err, res.stderr)
	}

	output := filepath.Join(dir, "cover.steg.ppm")
	encoded, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("default output not written: %v", err)
	}
	if len(encoded) != len(coverImage) {
		t.Errorf("encoded length = %d, want %d", len(encoded), len(coverImage))
	}

	res = runCLI(t, dir, "", "decode", output)
	if res.err != nil {
		t.Fatalf("decode error = %v\nstderr: %s", res.err, res.stderr)
	}
	if res.stdout != "hello\n" {
		t.Errorf("decode stdout = %q, want %q", res.stdout, "hello\n")
	}

	reg, err := config.LoadRegistryFrom(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	rec := reg.GetImage(cover)
	if rec == nil {
		t.Fatal("encode should record the carrier image")
	}
	if rec.Capacity != 5 || rec.LastMessageLength != 5 || rec.LastOutput != output {
		t.Errorf("record = %+v", rec)
	}
}

func TestEncode_MessageFromStdin(t *testing.T) {
	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)
	output := filepath.Join(dir, "out.ppm")

	res := runCLI(t, dir, "hi\r\n", "encode", cover, "-o", output)
	if res.err != nil {
		t.Fatalf("encode error = %v\nstderr: %s", res.err, res.stderr)
	}

	res = runCLI(t, dir, "", "decode", output)
	if res.err != nil {
		t.Fatalf("decode error = %v", res.err)
	}
	if res.stdout != "hi\n" {
		t.Errorf("decode stdout = %q, want %q", res.stdout, "hi\n")
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		image   []byte
		message string
		check   func(error) bool
		stderr  string
	}{
		{
			name:    "message too long",
			image:   coverImage,
			message: "toolong",
			check:   steg.IsCapacityError,
			stderr:  "Message does not fit in this image",
		},
		{
			name:    "empty message",
			image:   coverImage,
			message: "",
			check:   steg.IsEmptyMessageError,
			stderr:  "Message is empty",
		},
		{
			name:    "bad header",
			image:   []byte("P3\n4 4\n255\n"),
			message: "hi",
			check:   func(err error) bool { return err != nil },
			stderr:  "Could not read image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cover := writeImage(t, dir, "cover.ppm", tt.image)

			res := runCLI(t, dir, "", "encode", cover, "-m", tt.message)
			if res.err == nil {
				t.Fatal("encode should fail")
			}
			if !errors.Is(res.err, errReported) {
				t.Errorf("error should be marked as reported: %v", res.err)
			}
			if !tt.check(res.err) {
				t.Errorf("unexpected error type: %v", res.err)
			}
			if !strings.Contains(res.stderr, tt.stderr) {
				t.Errorf("stderr should contain %q, got:\n%s", tt.stderr, res.stderr)
			}
			if _, err := os.Stat(filepath.Join(dir, "cover.steg.ppm")); err == nil {
				t.Error("no output should be written on failure")
			}
		})
	}
}

func TestEncode_Overwrite(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		force   bool
		wantErr bool
	}{
		{name: "declined", stdin: "n\n", wantErr: true},
		{name: "no answer", stdin: "", wantErr: true},
		{name: "confirmed", stdin: "y\n"},
		{name: "forced", force: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cover := writeImage(t, dir, "cover.ppm", coverImage)
			output := writeImage(t, dir, "cover.steg.ppm", []byte("keep me"))

			args := []string{"encode", cover, "-m", "hi"}
			if tt.force {
				args = append(args, "--force")
			}
			res := runCLI(t, dir, tt.stdin, args...)

			data, err := os.ReadFile(output)
			if err != nil {
				t.Fatal(err)
			}

			if tt.wantErr {
				if res.err == nil {
					t.Fatal("encode should refuse to overwrite")
				}
				if string(data) != "keep me" {
					t.Error("existing output should be untouched")
				}
				return
			}

			if res.err != nil {
				t.Fatalf("encode error = %v\nstderr: %s", res.err, res.stderr)
			}
			if string(data) == "keep me" {
				t.Error("output should be replaced")
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	dir := t.TempDir()
	noise := writeImage(t, dir, "noise.ppm", noiseImage)

	res := runCLI(t, dir, "", "decode", noise)
	if res.err == nil {
		t.Fatal("decode should fail")
	}
	if !steg.IsNonASCIIDecodeError(res.err) {
		t.Errorf("error = %v, want non-ASCII decode error", res.err)
	}
	if !strings.Contains(res.stderr, "No embedded message found") {
		t.Errorf("stderr = %s", res.stderr)
	}
	if res.stdout != "" {
		t.Errorf("stdout should be empty, got %q", res.stdout)
	}
}

func TestDecode_MultipleJSON(t *testing.T) {
	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)
	noise := writeImage(t, dir, "noise.ppm", noiseImage)

	if res := runCLI(t, dir, "", "encode", cover, "-m", "abc"); res.err != nil {
		t.Fatalf("encode error = %v", res.err)
	}
	encoded := filepath.Join(dir, "cover.steg.ppm")

	res := runCLI(t, dir, "", "decode", "--format", "json", encoded, noise)
	if res.err == nil {
		t.Fatal("decode should report the failed image")
	}

	var results []decodeResult
	scanner := bufio.NewScanner(strings.NewReader(res.stdout))
	for scanner.Scan() {
		var r decodeResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		results = append(results, r)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].File != encoded || results[0].Message != "abc" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].File != noise || results[1].Type != api.TypeNonASCIIDecode {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestDecode_BadFormat(t *testing.T) {
	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)

	res := runCLI(t, dir, "", "decode", "--format", "xml", cover)
	if res.err == nil || !strings.Contains(res.err.Error(), "unknown format") {
		t.Errorf("err = %v, want unknown format", res.err)
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)

	res := runCLI(t, dir, "", "inspect", "--format", "json", cover)
	if res.err != nil {
		t.Fatalf("inspect error = %v", res.err)
	}

	var info api.HeaderInfo
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, res.stdout)
	}

	want := api.HeaderInfo{
		Magic:         "P6",
		Width:         4,
		Height:        4,
		MaxColorValue: 255,
		DataOffset:    11,
		PixelBytes:    48,
		ExpectedBytes: 48,
		Capacity:      5,
	}
	if info != want {
		t.Errorf("inspect = %+v, want %+v", info, want)
	}

	res = runCLI(t, dir, "", "inspect", cover)
	if res.err != nil {
		t.Fatalf("inspect error = %v", res.err)
	}
	for _, s := range []string{"4 x 4", "11 bytes", "5 characters"} {
		if !strings.Contains(res.stdout, s) {
			t.Errorf("inspect output should contain %q:\n%s", s, res.stdout)
		}
	}
}

func TestInspect_ShortPixelData(t *testing.T) {
	dir := t.TempDir()
	short := writeImage(t, dir, "short.ppm", coverImage[:40])

	res := runCLI(t, dir, "", "inspect", short)
	if res.err != nil {
		t.Fatalf("inspect error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "Pixel data size mismatch") {
		t.Errorf("expected a size warning:\n%s", res.stdout)
	}
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{name: "no message"},
		{name: "fits", message: "hello"},
		{name: "too long", message: "toolong", wantErr: true},
		{name: "non-ASCII", message: "héllo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cover := writeImage(t, dir, "cover.ppm", coverImage)

			args := []string{"capacity", cover}
			if tt.message != "" {
				args = append(args, "-m", tt.message)
			}
			res := runCLI(t, dir, "", args...)

			if (res.err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", res.err, tt.wantErr)
			}
			if !strings.Contains(res.stdout, "5 characters") {
				t.Errorf("capacity output:\n%s", res.stdout)
			}
		})
	}
}

func TestRemoteCommands(t *testing.T) {
	srv, err := server.New(&server.Config{})
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)
	second := writeImage(t, dir, "second.ppm", coverImage)

	res := runCLI(t, dir, "", "encode", cover, "-m", "hey", "--server", ts.URL)
	if res.err != nil {
		t.Fatalf("remote encode error = %v\nstderr: %s", res.err, res.stderr)
	}
	res = runCLI(t, dir, "", "encode", second, "-m", "you", "--server", ts.URL)
	if res.err != nil {
		t.Fatalf("remote encode error = %v\nstderr: %s", res.err, res.stderr)
	}

	first := filepath.Join(dir, "cover.steg.ppm")
	res = runCLI(t, dir, "", "decode", "--server", ts.URL, first)
	if res.err != nil || res.stdout != "hey\n" {
		t.Errorf("remote decode = %q, %v", res.stdout, res.err)
	}

	// Several files go over one websocket session
	res = runCLI(t, dir, "", "decode", "--server", ts.URL, first, filepath.Join(dir, "second.steg.ppm"))
	if res.err != nil {
		t.Fatalf("session decode error = %v\nstderr: %s", res.err, res.stderr)
	}
	wantOut := first + ": hey\n" + filepath.Join(dir, "second.steg.ppm") + ": you\n"
	if res.stdout != wantOut {
		t.Errorf("session decode stdout = %q, want %q", res.stdout, wantOut)
	}

	res = runCLI(t, dir, "", "encode", cover, "-m", "toolong", "-o", filepath.Join(dir, "x.ppm"), "--server", ts.URL)
	if res.err == nil {
		t.Fatal("remote encode should fail for an oversized message")
	}
	if !strings.Contains(res.stderr, "larger image or a shorter message") {
		t.Errorf("stderr should carry the capacity hint:\n%s", res.stderr)
	}

	res = runCLI(t, dir, "", "inspect", "--format", "json", "--server", ts.URL, cover)
	if res.err != nil {
		t.Fatalf("remote inspect error = %v", res.err)
	}
	var info api.HeaderInfo
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info.Capacity != 5 || info.DataOffset != 11 {
		t.Errorf("remote inspect = %+v", info)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	res := runCLI(t, dir, "", "config", "path")
	if res.err != nil || strings.TrimSpace(res.stdout) != configPath {
		t.Errorf("config path = %q, %v", res.stdout, res.err)
	}

	if res := runCLI(t, dir, "", "config", "init"); res.err != nil {
		t.Fatalf("config init error = %v", res.err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config init should write %s: %v", configPath, err)
	}
	if res := runCLI(t, dir, "", "config", "init"); res.err == nil {
		t.Error("second config init should fail")
	}

	res = runCLI(t, dir, "", "config", "show")
	if res.err != nil {
		t.Fatalf("config show error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "port: 8765") {
		t.Errorf("config show output:\n%s", res.stdout)
	}

	cover := writeImage(t, dir, "cover.ppm", coverImage)
	if res := runCLI(t, dir, "", "inspect", cover); res.err != nil {
		t.Fatalf("inspect error = %v", res.err)
	}
	if res := runCLI(t, dir, "", "config", "forget", cover); res.err != nil {
		t.Fatalf("config forget error = %v", res.err)
	}
	if res := runCLI(t, dir, "", "config", "forget", cover); res.err == nil {
		t.Error("forgetting an unknown image should fail")
	}
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		quiet   bool
		check   func(*server.Config) bool
		explain string
	}{
		{
			name:    "config defaults",
			check:   func(c *server.Config) bool { return c.Port == config.DefaultServerPort && c.Advertise },
			explain: "port and advertise come from the config file",
		},
		{
			name:    "flags override",
			args:    []string{"--port", "9000", "--no-advertise", "--self-signed"},
			check:   func(c *server.Config) bool { return c.Port == 9000 && !c.Advertise && c.SelfSigned },
			explain: "flags replace config values",
		},
		{
			name:    "quiet serve logs at info",
			quiet:   true,
			check:   func(c *server.Config) bool { return c.LogLevel == "info" },
			explain: "serve without a level logs at info",
		},
		{
			name:    "explicit level is kept",
			check:   func(c *server.Config) bool { return c.LogLevel == "" },
			explain: "global logger already initialized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &app{registry: config.NewRegistry(), quiet: tt.quiet}
			cmd := a.newServeCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}

			cfg := a.serverConfig(cmd)
			if !tt.check(cfg) {
				t.Errorf("%s: got %+v", tt.explain, cfg)
			}
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input  string
		suffix string
		want   string
	}{
		{"cover.ppm", ".steg", "cover.steg.ppm"},
		{"/tmp/cover.PPM", ".steg", "/tmp/cover.steg.ppm"},
		{"cover", "-out", "cover-out.ppm"},
		{"dir.v2/cover.ppm", ".steg", "dir.v2/cover.steg.ppm"},
	}

	for _, tt := range tests {
		if got := defaultOutputPath(tt.input, tt.suffix); got != tt.want {
			t.Errorf("defaultOutputPath(%q, %q) = %q, want %q", tt.input, tt.suffix, got, tt.want)
		}
	}
}

func TestTrimNewline(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello\n", "hello"},
		{"hello\r\n", "hello"},
		{"hello\n\n", "hello\n"},
		{"hello", "hello"},
		{"hello\r", "hello\r"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := trimNewline(tt.in); got != tt.want {
			t.Errorf("trimNewline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
