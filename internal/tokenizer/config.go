package tokenizer

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Config describes a vocabulary file. Marker ids are pointers so absent
// fields stay distinguishable from id 0.
type Config struct {
	Tokens     []string `json:"tokens"`
	SpecialIDs []int    `json:"special_ids,omitempty"`
	BOSTokenID *int     `json:"bos_token_id,omitempty"`
	EOSTokenID *int     `json:"eos_token_id,omitempty"`
	UNKTokenID *int     `json:"unk_token_id,omitempty"`
}

// LoadConfig reads a vocabulary config from a JSON file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read vocab config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse vocab config %s: %w", path, err)
	}
	if len(cfg.Tokens) == 0 {
		return cfg, fmt.Errorf("vocab config %s: no tokens", path)
	}
	return cfg, nil
}
