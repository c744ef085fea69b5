package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is a YAML list of quiz documents; every entry must carry an id.
type SeedFile struct {
	Quizzes []QuizDocument `yaml:"quizzes"`
}

// LoadSeedFile reads quiz documents from a YAML seed file.
func LoadSeedFile(path string) ([]QuizDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, doc := range seed.Quizzes {
		if doc.ID == "" {
			return nil, fmt.Errorf("parse seed file %s: quiz #%d has no id", path, i)
		}
	}
	return seed.Quizzes, nil
}
