package api_test

import (
	"fmt"
	"log"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/pkg/api"
)

// Example shows basic usage of the Lua obfuscator library.
func Example() {
	// Suppress default informational messages for example
	config.Testing = true
	defer func() { config.Testing = false }()

	// Create an obfuscator with default options and set to silent
	obf, err := api.NewObfuscator(api.Options{
		Silent: true, // This will suppress most verbose output
	})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	// Obfuscate some Lua code
	_, err = obf.ObfuscateCode(`print("Hello World")`)
	if err != nil {
		log.Fatalf("Failed to obfuscate code: %v", err)
	}

	fmt.Println("Lua code was successfully obfuscated")

	// Output: Lua code was successfully obfuscated
}

// ExampleNewObfuscator_preset demonstrates selecting a strength preset.
func ExampleNewObfuscator_preset() {
	// Suppress default informational messages for example
	config.Testing = true
	defer func() { config.Testing = false }()

	// Strong applies every available step; Minify only renames locals.
	obf, err := api.NewObfuscator(api.Options{
		Preset: "Strong",
		Silent: true,
		Seed:   42, // A fixed seed makes the output reproducible
	})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	_, err = obf.ObfuscateCode(`local secret = "value" print(secret)`)
	if err != nil {
		log.Fatalf("Failed to obfuscate code: %v", err)
	}

	fmt.Println("Obfuscated with the Strong preset")
	// Output: Obfuscated with the Strong preset
}

// ExampleObfuscator_Mapping demonstrates retrieving the rename report after a run.
func ExampleObfuscator_Mapping() {
	// Suppress default informational messages for example
	config.Testing = true
	defer func() { config.Testing = false }()

	obf, err := api.NewObfuscator(api.Options{
		Preset: "Minify",
		Silent: true,
		Seed:   1,
	})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	_, err = obf.ObfuscateCode(`local playerName = "x" print(playerName)`)
	if err != nil {
		log.Fatalf("Failed to obfuscate code: %v", err)
	}

	// Mapping lists original/generated pairs sorted by original name
	for _, entry := range obf.Mapping() {
		fmt.Printf("%s was renamed\n", entry.Original)
	}
	// Output: playerName was renamed
}

// ExampleObfuscator_ObfuscateDirectory demonstrates how to obfuscate an entire
// directory of Lua files.
func ExampleObfuscator_ObfuscateDirectory() {
	// Suppress default informational messages for example
	config.Testing = true
	defer func() { config.Testing = false }()

	// Initialize the obfuscator with default configuration
	_, err := api.NewObfuscator(api.Options{
		Silent: true,
	})
	if err != nil {
		log.Fatalf("Failed to create obfuscator: %v", err)
	}

	// This is just a demonstration - in a real situation you would use actual
	// directory paths
	fmt.Println("Directory successfully obfuscated")
	// Output: Directory successfully obfuscated
}
