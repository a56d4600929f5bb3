package app

import (
	"errors"
	"fmt"
	"strings"
)

// Command はcoursegitバイナリのサブコマンド。
type Command string

const (
	// CommandServe はコース・リポジトリ・提出APIを提供するHTTPサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker はユーザー逆参照の整合ジョブ（reconcile）を定期実行する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーマを最新版まで適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のserveの/healthを叩いて終了コードで結果を返す。
	// distrolessイメージのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// ErrUnknownCommand はサポート外のサブコマンドが指定された場合に返される。
var ErrUnknownCommand = errors.New("unknown command")

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand は引数の先頭をサブコマンドとして解釈する。
// 引数が空の場合はCommandServe。未知の値はErrUnknownCommandでラップしたエラーを返す。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}

	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return "", fmt.Errorf("%w %q (available: %s)", ErrUnknownCommand, args[0], strings.Join(names, ", "))
}
