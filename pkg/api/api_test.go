package api

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/internal/lua"
)

func TestNewObfuscator(t *testing.T) {
	// Test with default empty options - this should use default config
	obf, err := NewObfuscator(Options{})
	if err != nil {
		t.Errorf("Expected default config to be used, got error: %v", err)
	}
	if obf == nil {
		t.Errorf("Expected non-nil Obfuscator with default config, got nil")
	}

	// Create a temporary config file
	configContent := `
silent: true
lua_version: "Lua51"
name_generator: "mangled"
seed: 42
steps:
  - name: EncryptStrings
  - name: WrapInFunction
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	// Test with valid config
	obf, err = NewObfuscator(Options{
		ConfigPath: configPath,
		Silent:     true,
	})
	if err != nil {
		t.Fatalf("NewObfuscator with valid config failed: %v", err)
	}
	if obf == nil {
		t.Fatalf("Expected non-nil Obfuscator, got nil")
	}
	if obf.Config == nil {
		t.Errorf("Expected non-nil Config in Obfuscator, got nil")
	}
	if len(obf.Config.Steps) != 2 {
		t.Errorf("Expected 2 configured steps, got %d", len(obf.Config.Steps))
	}
}

func TestNewObfuscatorErrors(t *testing.T) {
	// Missing explicit config file
	if _, err := NewObfuscator(Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")}); err == nil {
		t.Errorf("Expected error for missing config file, got nil")
	}

	// Unknown preset name
	if _, err := NewObfuscator(Options{Preset: "Impossible"}); err == nil {
		t.Errorf("Expected error for unknown preset, got nil")
	}

	// A config file with an unknown step must fail validation up front
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	badContent := "silent: true\nsteps:\n  - name: NotAStep\n"
	if err := os.WriteFile(configPath, []byte(badContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	if _, err := NewObfuscator(Options{ConfigPath: configPath, Silent: true}); err == nil {
		t.Errorf("Expected error for unknown step in config, got nil")
	}
}

func TestObfuscateCode(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Medium", Silent: true, Seed: 42})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	luaCode := `local message = "Hello, World"
local function greet(name)
    return message .. " from " .. name
end
print(greet("luamixer"))`

	result, err := obf.ObfuscateCode(luaCode)
	if err != nil {
		t.Fatalf("ObfuscateCode failed: %v", err)
	}
	if result == "" {
		t.Errorf("ObfuscateCode returned empty string")
	}
	if result == luaCode {
		t.Errorf("Expected code to be modified, but it's identical to the input")
	}
	if strings.Contains(result, "Hello, World") {
		t.Errorf("Expected string literals to be hidden, but found plaintext")
	}

	// The obfuscated program must behave like the original
	want, err := lua.RunSource(luaCode, lua.Lua51)
	if err != nil {
		t.Fatalf("Running original failed: %v", err)
	}
	got, err := lua.RunSource(result, lua.Lua51)
	if err != nil {
		t.Fatalf("Running obfuscated output failed: %v", err)
	}
	if got != want {
		t.Errorf("Output behavior changed: want %q, got %q", want, got)
	}
}

func TestObfuscateCodeSyntaxError(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Minify", Silent: true, Seed: 1})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if _, err := obf.ObfuscateCode("local = broken"); err == nil {
		t.Errorf("Expected error for invalid Lua source, got nil")
	}
}

func TestObfuscateFileToFile(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Weak", Silent: true, Seed: 7})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	luaCode := `local total = 0
for i = 1, 10 do
    total = total + i
end
print(total)`

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "input.lua")
	if err := os.WriteFile(inputPath, []byte(luaCode), 0644); err != nil {
		t.Fatalf("Failed to write test Lua file: %v", err)
	}

	// The output directory does not exist yet; it must be created
	outputPath := filepath.Join(tmpDir, "out", "output.lua")
	if err := obf.ObfuscateFileToFile(inputPath, outputPath); err != nil {
		t.Fatalf("ObfuscateFileToFile failed: %v", err)
	}

	obfuscated, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if len(obfuscated) == 0 {
		t.Errorf("Obfuscated code file is empty")
	}
	if string(obfuscated) == luaCode {
		t.Errorf("Expected code to be modified, but it's identical to the input")
	}

	got, err := lua.RunSource(string(obfuscated), lua.Lua51)
	if err != nil {
		t.Fatalf("Running obfuscated output failed: %v", err)
	}
	if got != "55\n" {
		t.Errorf("Expected output \"55\\n\", got %q", got)
	}
}

func TestObfuscateFileMissing(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Minify", Silent: true, Seed: 1})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if _, err := obf.ObfuscateFile(filepath.Join(t.TempDir(), "absent.lua")); err == nil {
		t.Errorf("Expected error for missing input file, got nil")
	}
}

func TestObfuscateDirectory(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Minify", Silent: true, Seed: 3})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	tmpDir := t.TempDir()
	inputDir := filepath.Join(tmpDir, "input")
	files := map[string]string{
		filepath.Join(inputDir, "root.lua"):          `local rootValue = 1 print(rootValue)`,
		filepath.Join(inputDir, "mod", "script.lua"): `local modValue = 2 print(modValue)`,
		filepath.Join(inputDir, "mod", "extra.luau"): `local extraValue = 3 print(extraValue)`,
		filepath.Join(inputDir, "readme.txt"):        "Not Lua, copied through unchanged.",
	}
	for path, content := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create test directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write test file %s: %v", path, err)
		}
	}

	outputDir := filepath.Join(tmpDir, "output")
	if err := obf.ObfuscateDirectory(inputDir, outputDir); err != nil {
		t.Fatalf("ObfuscateDirectory failed: %v", err)
	}

	for _, name := range []string{"root.lua", filepath.Join("mod", "script.lua")} {
		content, err := os.ReadFile(filepath.Join(outputDir, name))
		if err != nil {
			t.Errorf("Expected output file %s: %v", name, err)
			continue
		}
		if strings.Contains(string(content), "Value") {
			t.Errorf("Expected locals to be renamed in %s, but found original name", name)
		}
	}

	copied, err := os.ReadFile(filepath.Join(outputDir, "readme.txt"))
	if err != nil {
		t.Fatalf("Expected non-Lua file to be copied: %v", err)
	}
	if string(copied) != files[filepath.Join(inputDir, "readme.txt")] {
		t.Errorf("Non-Lua file was modified during copy")
	}
}

func TestObfuscateDirectoryNotADirectory(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Minify", Silent: true, Seed: 3})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	filePath := filepath.Join(t.TempDir(), "file.lua")
	if err := os.WriteFile(filePath, []byte("print(1)"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if err := obf.ObfuscateDirectory(filePath, t.TempDir()); err == nil {
		t.Errorf("Expected error when input path is a file, got nil")
	}
}

func TestMappingAndSeed(t *testing.T) {
	obf, err := NewObfuscator(Options{Preset: "Minify", Silent: true, Seed: 11})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if _, err := obf.ObfuscateCode(`local alpha = 1 local beta = 2 print(alpha + beta)`); err != nil {
		t.Fatalf("ObfuscateCode failed: %v", err)
	}

	if got := obf.Seed(); got != 11 {
		t.Errorf("Expected seed 11, got %d", got)
	}
	mapping := obf.Mapping()
	if len(mapping) != 2 {
		t.Fatalf("Expected 2 mapping entries, got %d", len(mapping))
	}
	if mapping[0].Original != "alpha" || mapping[1].Original != "beta" {
		t.Errorf("Mapping not sorted by original name: %+v", mapping)
	}
	for _, entry := range mapping {
		if entry.Generated == entry.Original || entry.Generated == "" {
			t.Errorf("Entry %q has a bad generated name %q", entry.Original, entry.Generated)
		}
	}
}

func TestIsLuaFile(t *testing.T) {
	cases := map[string]bool{
		"script.lua":  true,
		"SCRIPT.LUA":  true,
		"module.luau": true,
		"readme.md":   false,
		"lua":         false,
		"script.lu":   false,
	}
	for name, want := range cases {
		if got := isLuaFile(name); got != want {
			t.Errorf("isLuaFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPrintInfo(t *testing.T) {
	// Capture stdout
	originalStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Test with Testing flag set to false (default)
	config.Testing = false
	PrintInfo("Test output: %s\n", "visible")

	// Read captured output
	w.Close()
	os.Stdout = originalStdout
	var buf bytes.Buffer
	io.Copy(&buf, r)

	// Verify output was printed when Testing=false
	if !strings.Contains(buf.String(), "Test output: visible") {
		t.Error("Expected output to be printed when Testing=false")
	}

	// Reset capture
	r, w, _ = os.Pipe()
	os.Stdout = w

	// Test with Testing flag set to true
	config.Testing = true
	PrintInfo("Test output: %s\n", "invisible")

	// Read captured output
	w.Close()
	os.Stdout = originalStdout
	buf.Reset()
	io.Copy(&buf, r)

	// Verify no output was printed when Testing=true
	if buf.String() != "" {
		t.Errorf("Expected no output when Testing=true, got: %s", buf.String())
	}

	// Reset Testing flag to default value
	config.Testing = false
}
