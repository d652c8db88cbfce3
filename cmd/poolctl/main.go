// poolctl drives the admin surface of a running savings pool server and
// prepares Merkle allow lists for gated games.
//
// Usage:
//
//	poolctl -server http://localhost:8081 -secret S initialize [-incentive-token T -incentive-amount A -merkle-root R]
//	poolctl -server http://localhost:8081 -secret S emergency
//	poolctl -server http://localhost:8081 -secret S fee-withdraw [-expected A]
//	poolctl -server http://localhost:8081 redeem [-min-return A]
//	poolctl -server http://localhost:8081 status
//	poolctl merkle -addresses addrs.txt
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nolossgames/savings-pool-server/allowlist"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8081", "Pool server base URL")
	secret := flag.String("secret", "", "Admin secret (or ADMIN_SECRET)")
	flag.Parse()

	if *secret == "" {
		*secret = os.Getenv("ADMIN_SECRET")
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing command: initialize | emergency | fee-withdraw | redeem | status | merkle")
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	if err := run(*serverURL, *secret, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(serverURL, secret, cmd string, args []string) error {
	switch cmd {
	case "initialize":
		fs := flag.NewFlagSet("initialize", flag.ExitOnError)
		token := fs.String("incentive-token", "", "Incentive token symbol")
		amount := fs.String("incentive-amount", "0", "Incentive token amount")
		root := fs.String("merkle-root", "", "Merkle root for allow-listed games")
		_ = fs.Parse(args)
		return post(serverURL+"/admin/initialize", secret, map[string]any{
			"incentive_token":  *token,
			"incentive_amount": *amount,
			"merkle_root":      *root,
		})
	case "emergency":
		return post(serverURL+"/admin/emergency", secret, map[string]any{})
	case "fee-withdraw":
		fs := flag.NewFlagSet("fee-withdraw", flag.ExitOnError)
		expected := fs.String("expected", "0", "Fail if the fee is below this amount")
		_ = fs.Parse(args)
		return post(serverURL+"/admin/fee-withdraw", secret, map[string]any{
			"expected_amount": *expected,
		})
	case "redeem":
		fs := flag.NewFlagSet("redeem", flag.ExitOnError)
		minReturn := fs.String("min-return", "0", "Fail if the venue returns less than this")
		_ = fs.Parse(args)
		return post(serverURL+"/pool/redeem", "", map[string]any{
			"min_return": *minReturn,
		})
	case "status":
		return get(serverURL + "/pool/status")
	case "merkle":
		fs := flag.NewFlagSet("merkle", flag.ExitOnError)
		path := fs.String("addresses", "", "File with one address per line")
		_ = fs.Parse(args)
		if *path == "" {
			return fmt.Errorf("missing required -addresses argument")
		}
		return buildMerkle(*path)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func post(url, secret string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Admin-Secret", secret)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func get(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	fmt.Println(string(body))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

// buildMerkle prints the root and per-address proofs for an address file.
func buildMerkle(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var addresses []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		addr := strings.TrimSpace(scanner.Text())
		if addr != "" {
			addresses = append(addresses, addr)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("no addresses in %s", path)
	}

	root, proofs := allowlist.Build(addresses)
	out := map[string]any{"root": root, "proofs": proofs}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
