package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/internal/hn"
)

var defaultClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

func main() {
	id := flag.Int64("id", 0, "HN item id to fetch")
	kids := flag.Bool("kids", false, "Also fetch the item's direct children")
	flag.Parse()

	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "usage: hn-client -id <item id> [-kids]")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	client := hn.NewClient(cfg.HN, defaultClient)

	item, err := client.FetchItem(ctx, *id)
	if err != nil {
		log.Fatal(err)
	}
	dump(item)

	if *kids && len(item.Kids) > 0 {
		children, err := client.FetchItems(ctx, item.Kids)
		if err != nil {
			log.Fatal(err)
		}
		for i := range children {
			dump(&children[i])
		}
	}
}

func dump(item *hn.Item) {
	b, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}
