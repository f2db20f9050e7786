package app

// Command はバイナリの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーとバックグラウンドワーカーを起動する。
	CommandServe Command = "serve"
	// CommandHealthcheck は稼働中サーバーの死活確認を1回実行する。
	// distrolessイメージにはシェルがないため、Dockerヘルスチェックはこのモードを使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数がない場合、および未知のコマンドの場合はCommandServeにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	if Command(args[0]) == CommandHealthcheck {
		return CommandHealthcheck
	}
	return CommandServe
}
