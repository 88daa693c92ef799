package app

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"空の引数はserve", []string{}, CommandServe},
		{"serve指定", []string{"serve"}, CommandServe},
		{"worker指定", []string{"worker"}, CommandWorker},
		{"cleanup指定", []string{"cleanup"}, CommandCleanup},
		{"cleanupにフラグが続く", []string{"cleanup", "--all", "--dry-run"}, CommandCleanup},
		{"migrate指定", []string{"migrate"}, CommandMigrate},
		{"healthcheck指定", []string{"healthcheck"}, CommandHealthcheck},
		{"未知のコマンドはserve", []string{"unknown"}, CommandServe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
