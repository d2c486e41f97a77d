package runconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorlab/pkg/config"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read run file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates a run file
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode run file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset evaluation fields from the environment defaults
func ApplyDefaults(cfg *Config, defaults config.FactorConfig) {
	if len(cfg.Evaluation.Intervals) == 0 {
		cfg.Evaluation.Intervals = append([]int(nil), defaults.Intervals...)
	}
	if cfg.Evaluation.WinsorizePct == nil {
		pct := defaults.WinsorizePct
		cfg.Evaluation.WinsorizePct = &pct
	}
	if cfg.Evaluation.Bins == 0 {
		cfg.Evaluation.Bins = defaults.Bins
	}
	if cfg.Evaluation.ByIndustry == nil {
		by := defaults.ByIndustry
		cfg.Evaluation.ByIndustry = &by
	}
	if cfg.Inputs.MarketWeight == "" {
		cfg.Inputs.MarketWeight = MarketWeightEqual
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
