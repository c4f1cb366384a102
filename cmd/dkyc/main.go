// Package main provides a CLI for the customer and banker sides of the KYC
// flow: hash a document, upload it, submit or update the record, and read it
// back.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"dkyc/internal/kyc/client"
	"dkyc/internal/kyc/handler"
	"dkyc/internal/kyc/hasher"
	strutil "dkyc/pkg/string"
)

const defaultAPIBase = "http://localhost:8080"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "hash":
		err = cmdHash(args[1:], stdout, stderr)
	case "derive-id":
		err = cmdDeriveID(args[1:], stdout, stderr)
	case "upload":
		err = cmdUpload(ctx, args[1:], stdout, stderr)
	case "get":
		err = cmdGet(ctx, args[1:], stdout, stderr)
	case "download":
		err = cmdDownload(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `dkyc - customer and banker client for the dKYC gateway

Usage:
  dkyc <command> [flags]

Commands:
  hash       Print the Keccak-256 content hash of a file
  derive-id  Derive a customer id from name and date of birth
  upload     Hash and upload a document, then submit (or update) the record
  get        Retrieve a customer's record and verification status
  download   Fetch a stored document through a presigned URL

Examples:
  dkyc hash -file passport.png
  dkyc upload -file passport.png -customer 0xAbC... -name "Jane Doe" -dob 1990-01-01 -address "1 Main St"
  dkyc upload -update -file new.png -name "Jane Doe" -dob 1990-01-01 -address "2 Side St"
  dkyc get -customer 0xAbC...
  dkyc download -key uploads/1700000000000-ab12cd34-passport.png -out passport.png

The gateway address is taken from -api or DKYC_API (default http://localhost:8080).
Use "dkyc <command> -h" for more information about a command.`)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func apiFlag(fs *flag.FlagSet) *string {
	return fs.String("api", strutil.FirstNonEmpty(os.Getenv("DKYC_API"), defaultAPIBase), "Gateway base URL")
}

func newClient(api string, timeout time.Duration) (*client.Client, error) {
	return client.New(client.Config{BaseURL: api, Timeout: timeout})
}

func cmdHash(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("hash", stderr)
	file := fs.String("file", "", "Document to hash (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := hasher.HashReader(f)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, h.String())
	return nil
}

func cmdDeriveID(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("derive-id", stderr)
	name := fs.String("name", "", "Full name (required)")
	dob := fs.String("dob", "", "Date of birth (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := hasher.DeriveCustomerID(*name, *dob)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, id.String())
	return nil
}

type uploadOutput struct {
	Customer     string `json:"customer"`
	DocumentHash string `json:"documentHash"`
	StorageKey   string `json:"storageKey"`
	TxID         string `json:"txId"`
	Message      string `json:"message"`
}

func cmdUpload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("upload", stderr)
	api := apiFlag(fs)
	file := fs.String("file", "", "Document to upload (required)")
	contentType := fs.String("content-type", "", "Content type (guessed from the extension if empty)")
	customer := fs.String("customer", "", "Customer address or id (derived from name and dob if empty)")
	name := fs.String("name", "", "Full name (required)")
	dob := fs.String("dob", "", "Date of birth (required)")
	address := fs.String("address", "", "Home address (required)")
	update := fs.Bool("update", false, "Update an existing record instead of submitting a new one")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "Overall request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	customerID := *customer
	if customerID == "" {
		id, err := hasher.DeriveCustomerID(*name, *dob)
		if err != nil {
			return fmt.Errorf("derive customer id: %w", err)
		}
		customerID = id.String()
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	// the hash must cover exactly the bytes that are uploaded
	docHash, err := hasher.Hash(data)
	if err != nil {
		return err
	}

	ct := strutil.FirstNonEmpty(*contentType, mime.TypeByExtension(filepath.Ext(*file)), "application/octet-stream")
	c, err := newClient(*api, *timeout)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	target, err := c.UploadURL(ctx, filepath.Base(*file), ct)
	if err != nil {
		return fmt.Errorf("request upload url: %w", err)
	}
	if err := c.PutObject(ctx, target.UploadURL, ct, data); err != nil {
		return err
	}

	req := handler.WriteRequest{
		CustomerID:   customerID,
		Name:         *name,
		DateOfBirth:  *dob,
		HomeAddress:  *address,
		DocumentHash: docHash.String(),
		StorageKey:   target.StorageKey,
	}
	write := c.Submit
	if *update {
		write = c.Update
	}
	resp, err := write(ctx, req)
	if err != nil {
		return fmt.Errorf("document uploaded as %s but the ledger write failed: %w", target.StorageKey, err)
	}

	return printJSON(stdout, uploadOutput{
		Customer:     customerID,
		DocumentHash: docHash.String(),
		StorageKey:   target.StorageKey,
		TxID:         resp.TxID,
		Message:      resp.Message,
	})
}

func cmdGet(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("get", stderr)
	api := apiFlag(fs)
	customer := fs.String("customer", "", "Customer address or id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *customer == "" {
		return errors.New("-customer is required")
	}

	c, err := newClient(*api, 30*time.Second)
	if err != nil {
		return err
	}
	rec, err := c.Get(ctx, *customer)
	if err != nil {
		return err
	}
	return printJSON(stdout, rec)
}

func cmdDownload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("download", stderr)
	api := apiFlag(fs)
	key := fs.String("key", "", "Storage key (required)")
	out := fs.String("out", "", "Write the document here instead of printing the URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}

	c, err := newClient(*api, time.Minute)
	if err != nil {
		return err
	}
	target, err := c.DownloadURL(ctx, *key)
	if err != nil {
		return err
	}
	if *out == "" {
		fmt.Fprintln(stdout, target.DownloadURL)
		return nil
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	n, err := c.GetObject(ctx, target.DownloadURL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	h, err := hashFile(*out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d bytes to %s (hash %s)\n", n, *out, h)
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := hasher.HashReader(f)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
