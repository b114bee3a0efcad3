package config

import "testing"

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		LLM: LLMConfig{
			APIKey: "test-key",
			Budget: BudgetConfig{
				DailyTokenLimit: 1000000,
				Action:          "invalid_action",
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `llm.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := Config{
				HTTP: HTTPConfig{Port: 8080},
				Database: DatabaseConfig{
					Addrs: []string{"localhost:6379"},
				},
				LLM: LLMConfig{
					APIKey: "test-key",
					Budget: BudgetConfig{
						Action: action,
					},
				},
			}

			err := cfg.Validate()
			if err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{},
		},
		LLM: LLMConfig{APIKey: "test-key"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingLLMAPIKey(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing llm api key")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 300 {
		t.Errorf("expected WriteTimeoutSec=300, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Index.KeyPrefix != "georag:" {
		t.Errorf("expected KeyPrefix='georag:', got %q", cfg.Index.KeyPrefix)
	}
	if cfg.Index.DescriptionsIndex != "descriptions" {
		t.Errorf("expected DescriptionsIndex='descriptions', got %q", cfg.Index.DescriptionsIndex)
	}
	if cfg.Index.LayersIndex != "layers" {
		t.Errorf("expected LayersIndex='layers', got %q", cfg.Index.LayersIndex)
	}
	if cfg.Pipeline.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Pipeline.TopK)
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.PreviewRows != 10 {
		t.Errorf("expected PreviewRows=10, got %d", cfg.Pipeline.PreviewRows)
	}
	if cfg.Pipeline.JobTTLSec != 600 {
		t.Errorf("expected JobTTLSec=600, got %d", cfg.Pipeline.JobTTLSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Index:    IndexConfig{KeyPrefix: "custom:", HNSWM: 16, HNSWEFConstruct: 200, ScanPageSize: 100},
		Pipeline: PipelineConfig{TopK: 5, MaxAttempts: 2, PreviewRows: 20},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Index.KeyPrefix)
	}
	if cfg.Pipeline.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Pipeline.TopK)
	}
	if cfg.Pipeline.MaxAttempts != 2 {
		t.Errorf("expected MaxAttempts=2, got %d", cfg.Pipeline.MaxAttempts)
	}
}
