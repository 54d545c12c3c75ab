package Config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/wenjyue84/MakanManager-sub001/Scoring"
	"github.com/wenjyue84/MakanManager-sub001/Workflow"
)

// Engine bundles the tunables read from config.json5. Missing file or fields
// fall back to defaults.
type Engine struct {
	Workflow Workflow.Settings `json:"workflow"`
	Scoring  Scoring.Weights   `json:"scoring"`
}

// LoadEnv loads .env if present. Missing file is not an error in production.
func LoadEnv() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file loaded, using process environment")
	}
}

// Load reads the engine tunables from the given JSON5 file.
func Load(path string) Engine {
	cfg := Engine{
		Workflow: Workflow.DefaultSettings(),
		Scoring:  Scoring.DefaultWeights(),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error reading %s: %v, using defaults", path, err)
		}
		return cfg
	}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		log.Printf("Error parsing %s: %v, using defaults", path, err)
		return Engine{
			Workflow: Workflow.DefaultSettings(),
			Scoring:  Scoring.DefaultWeights(),
		}
	}
	return cfg
}
