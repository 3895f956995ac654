// Command cachectl is a CLI client mirroring cmd/cacheserver's routes,
// grounded on the same pack example's cachectl shape (flag-parsed
// subcommands against a server base URL).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func main() {
	base := flag.String("server", "http://localhost:8080", "server base URL")
	clientID := flag.String("client", "", "client ID (X-Client-Id header)")
	ttl := flag.String("ttl", "", "TTL for set, e.g. 30s")
	perms := flag.String("perms", "", "comma-separated permissions for set")
	filter := flag.String("filter", "", "context filter for set-collection")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage:
  cachectl -server URL -client ID get KEY
  cachectl -server URL -client ID set KEY VALUE [-ttl=30s] [-perms=p1,p2]
  cachectl -server URL -client ID get-collection KEY
  cachectl -server URL -client ID set-collection KEY ITEM1,ITEM2 [-ttl=30s] [-filter=pat]
  cachectl -server URL backprop COLLECTION TYPE TARGET
  cachectl -server URL union ITEM1 ITEM2 [ITEM3 ...]
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	cmd := flag.Arg(0)
	switch cmd {
	case "get":
		runGet(*base, *clientID, flag.Arg(1))
	case "set":
		if flag.NArg() < 3 {
			fatal(fmt.Errorf("set requires KEY and VALUE"))
		}
		runSet(*base, *clientID, flag.Arg(1), flag.Arg(2), *ttl, *perms)
	case "get-collection":
		runGetCollection(*base, *clientID, flag.Arg(1))
	case "set-collection":
		if flag.NArg() < 3 {
			fatal(fmt.Errorf("set-collection requires KEY and ITEM1,ITEM2,..."))
		}
		runSetCollection(*base, *clientID, flag.Arg(1), flag.Arg(2), *ttl, *filter)
	case "backprop":
		if flag.NArg() < 4 {
			fatal(fmt.Errorf("backprop requires COLLECTION TYPE TARGET"))
		}
		runBackprop(*base, flag.Arg(1), flag.Arg(2), flag.Arg(3))
	case "union":
		runUnion(*base, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func itemsURL(base, key string) string {
	return fmt.Sprintf("%s/items/%s", base, url.PathEscape(key))
}

func collectionsURL(base, key string) string {
	return fmt.Sprintf("%s/collections/%s", base, url.PathEscape(key))
}

func doRequest(req *http.Request, clientID string) (*http.Response, error) {
	if clientID != "" {
		req.Header.Set("X-Client-Id", clientID)
	}
	return http.DefaultClient.Do(req)
}

func runGet(base, clientID, key string) {
	req, err := http.NewRequest(http.MethodGet, itemsURL(base, key), nil)
	if err != nil {
		fatal(err)
	}
	resp, err := doRequest(req, clientID)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}
	io.Copy(os.Stdout, resp.Body)
}

func runSet(base, clientID, key, value, ttl, perms string) {
	u := itemsURL(base, key)
	q := url.Values{}
	if ttl != "" {
		q.Set("ttl", ttl)
	}
	if perms != "" {
		q.Set("perms", perms)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequest(http.MethodPut, u, strings.NewReader(value))
	if err != nil {
		fatal(err)
	}
	resp, err := doRequest(req, clientID)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}
	fmt.Println("OK")
}

type getCollectionResponse struct {
	Hit    bool     `json:"hit"`
	Values []string `json:"values"`
}

func runGetCollection(base, clientID, key string) {
	req, err := http.NewRequest(http.MethodGet, collectionsURL(base, key), nil)
	if err != nil {
		fatal(err)
	}
	resp, err := doRequest(req, clientID)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}
	var out getCollectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fatal(err)
	}
	for _, v := range out.Values {
		fmt.Println(v)
	}
}

type setCollectionRequestBody struct {
	ItemKeys []string `json:"item_keys"`
	Filter   string   `json:"filter"`
}

func runSetCollection(base, clientID, key, itemList, ttl, filter string) {
	u := collectionsURL(base, key)
	if ttl != "" {
		u += "?" + url.Values{"ttl": {ttl}}.Encode()
	}
	body, err := json.Marshal(setCollectionRequestBody{ItemKeys: strings.Split(itemList, ","), Filter: filter})
	if err != nil {
		fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut, u, strings.NewReader(string(body)))
	if err != nil {
		fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := doRequest(req, clientID)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}
	io.Copy(os.Stdout, resp.Body)
}

type backpropRequestBody struct {
	CollectionKey string `json:"collection_key"`
	TypeToken     string `json:"type_token"`
	TargetItemKey string `json:"target_item_key"`
}

func runBackprop(base, collectionKey, typeToken, target string) {
	body, err := json.Marshal(backpropRequestBody{CollectionKey: collectionKey, TypeToken: typeToken, TargetItemKey: target})
	if err != nil {
		fatal(err)
	}
	resp, err := http.Post(base+"/admin/backprop", "application/json", strings.NewReader(string(body)))
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}
	fmt.Println("OK")
}

type unionRequestBody struct {
	ItemKeys []string `json:"item_keys"`
}

func runUnion(base string, itemKeys []string) {
	body, err := json.Marshal(unionRequestBody{ItemKeys: itemKeys})
	if err != nil {
		fatal(err)
	}
	resp, err := http.Post(base+"/admin/union", "application/json", strings.NewReader(string(body)))
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}
	fmt.Println("OK")
}
