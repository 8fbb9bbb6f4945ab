package main

import (
	"fmt"
	"os"

	lx "github.com/elilang/eli/internal/lexer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: debug_tokens <file>")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	l := lx.New(string(data))
	for {
		t := l.Next()
		if t.Type == lx.ILLEGAL {
			fmt.Printf("%d %q at %s (%s)\n", t.Type, t.Lex, t.Pos, t.Msg)
		} else {
			fmt.Printf("%d %q at %s\n", t.Type, t.Lex, t.Pos)
		}
		if t.Type == lx.EOF {
			break
		}
	}
}
