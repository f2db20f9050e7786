package app

import "testing"

// ParseCommand が引数に応じて正しい起動モードを返すことを確認する。
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{name: "引数なしはserve", args: nil, want: CommandServe},
		{name: "serve指定", args: []string{"serve"}, want: CommandServe},
		{name: "healthcheck指定", args: []string{"healthcheck"}, want: CommandHealthcheck},
		{name: "不明なコマンドはserve", args: []string{"migrate"}, want: CommandServe},
		{name: "余分な引数は無視", args: []string{"healthcheck", "--verbose"}, want: CommandHealthcheck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
