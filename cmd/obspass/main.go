// obspass prints the bcrypt hash for an observer password, ready to paste
// into [observer] password_hash.
//
// Usage:
//
//	go run ./cmd/obspass <password>
//	echo -n secret | go run ./cmd/obspass
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	gonet "github.com/l1jgo/horde/internal/net"
)

func main() {
	password, err := readPassword(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "obspass: %v\n", err)
		os.Exit(1)
	}
	hash, err := gonet.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "obspass: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
