// Terminal chat client. Tails one conversation and posts lines read from
// stdin.
//
//	go run ./clients/go -server http://localhost:8080 -handle alice -password secret -room general
//	go run ./clients/go -server http://localhost:8080 -handle alice -password secret -dm bob
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"html"
	"os"
	"regexp"

	"github.com/anugrahsoft/chatstream/clients/go/chatstream"
)

var tagRegex = regexp.MustCompile(`<[^>]+>`)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	handle := flag.String("handle", "", "login handle")
	password := flag.String("password", "", "login password")
	room := flag.String("room", "", "room slug to join")
	dm := flag.String("dm", "", "handle to chat with directly")
	flag.Parse()

	if *handle == "" || *password == "" || (*room == "") == (*dm == "") {
		fmt.Fprintln(os.Stderr, "need -handle, -password, and exactly one of -room or -dm")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := chatstream.New(*server)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := client.Login(ctx, *handle, *password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var events <-chan chatstream.Event
	if *room != "" {
		events, err = client.StreamRoom(ctx, *room, 0)
	} else {
		events, err = client.StreamDM(ctx, *dm, 0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	go func() {
		for ev := range events {
			if ev.Name == "stream-error" {
				fmt.Fprintln(os.Stderr, "stream closed by server:", ev.Data)
				cancel()
				return
			}
			fmt.Println(html.UnescapeString(tagRegex.ReplaceAllString(ev.Data, "")))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if *room != "" {
			err = client.PostRoom(ctx, *room, line)
		} else {
			err = client.PostDM(ctx, *dm, line)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
