package main

import (
	"github.com/shouni/dreamcatcher-kit/cmd"
)

// main はアプリケーションの唯一のエントリーポイントなのだ！
func main() {
	cmd.Execute()
}
