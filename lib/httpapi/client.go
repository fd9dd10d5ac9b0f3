// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/bureau-foundation/courier/lib/catalog"
	"github.com/bureau-foundation/courier/lib/chunk"
	"github.com/bureau-foundation/courier/lib/codec"
	"github.com/bureau-foundation/courier/lib/content"
	"github.com/bureau-foundation/courier/lib/digest"
)

// ErrVerifyFailed reports that a fetched piece did not check out
// against the trusted root: wrong length, wrong content, or a proof
// that reconstructs a different root. The piece must be discarded;
// there is no way to tell a corrupt piece from a malicious one.
var ErrVerifyFailed = errors.New("httpapi: piece verification failed")

// downloadConcurrency bounds parallel piece fetches per download.
const downloadConcurrency = 8

// Client talks to a courier piece server. The zero value is not
// usable; create one with NewClient. Safe for concurrent use.
//
// The client always advertises CBOR and zstd support and decodes
// whatever the server actually sent, so it interoperates with servers
// that only speak JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, for example
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Files fetches the server's catalog listing.
func (c *Client) Files(ctx context.Context) ([]catalog.FileInfo, error) {
	var infos []catalog.FileInfo
	if err := c.get(ctx, "/hashes", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Piece fetches one piece without verifying it. Most callers want
// VerifiedPiece; this exists for tooling that inspects raw responses.
func (c *Client) Piece(ctx context.Context, hashHex string, index int) (catalog.Piece, error) {
	var piece catalog.Piece
	path := "/piece/" + hashHex + "/" + strconv.Itoa(index)
	if err := c.get(ctx, path, &piece); err != nil {
		return catalog.Piece{}, err
	}
	return piece, nil
}

// VerifiedPiece fetches piece index of the file described by info and
// verifies it before returning the content: the piece must have the
// exact length the listing implies for that position, and its proof
// must reconstruct the trusted root under the listing's digest kind.
// The length check matters because leaf hashes are computed over
// zero-padded blocks: a final piece with trailing zeros stripped
// would still digest correctly, so length is verified separately.
func (c *Client) VerifiedPiece(ctx context.Context, info catalog.FileInfo, index int) ([]byte, error) {
	if index < 0 || index >= info.Pieces {
		return nil, fmt.Errorf("piece %d of %d: %w", index, info.Pieces, catalog.ErrNotFound)
	}

	d, err := digest.New(info.Digest)
	if err != nil {
		return nil, fmt.Errorf("listing for %s: %w", info.Hash, err)
	}

	piece, err := c.Piece(ctx, info.Hash.String(), index)
	if err != nil {
		return nil, err
	}

	want := chunk.Size
	if index == info.Pieces-1 {
		want = int(info.Bytes - int64(chunk.Size)*int64(info.Pieces-1))
	}
	if len(piece.Content) != want {
		return nil, fmt.Errorf("piece %d is %d bytes, want %d: %w",
			index, len(piece.Content), want, ErrVerifyFailed)
	}

	root, err := content.RootFromPiece(d, piece.Content, index, info.Pieces, piece.Proof)
	if err != nil {
		return nil, fmt.Errorf("piece %d: %v: %w", index, err, ErrVerifyFailed)
	}
	if root != info.Hash {
		return nil, fmt.Errorf("piece %d reconstructs root %s, want %s: %w",
			index, root, info.Hash, ErrVerifyFailed)
	}

	return piece.Content, nil
}

// Download fetches, verifies, and reassembles the whole file
// described by info, writing the content to w in piece order. Pieces
// are fetched concurrently; the first failure cancels the rest.
// progress, if non-nil, is called after each verified piece with the
// completed and total counts, possibly from multiple goroutines.
func (c *Client) Download(ctx context.Context, info catalog.FileInfo, w io.Writer, progress func(done, total int)) error {
	pieces := make([][]byte, info.Pieces)
	var done atomic.Int64

	p := pool.New().
		WithMaxGoroutines(downloadConcurrency).
		WithContext(ctx).
		WithCancelOnError()

	for i := range pieces {
		p.Go(func(ctx context.Context) error {
			data, err := c.VerifiedPiece(ctx, info, i)
			if err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
			pieces[i] = data
			if progress != nil {
				progress(int(done.Add(1)), info.Pieces)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	for _, data := range pieces {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing content: %w", err)
		}
	}
	return nil
}

// get performs one GET and decodes the response per its Content-Type
// and Content-Encoding.
func (c *Client) get(ctx context.Context, path string, v any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	request.Header.Set("Accept", contentTypeCBOR)
	request.Header.Set("Accept-Encoding", "zstd")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("GET %s: reading response: %w", path, err)
	}
	if response.Header.Get("Content-Encoding") == "zstd" {
		body, err = zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("GET %s: decompressing response: %w", path, err)
		}
	}

	if response.StatusCode != http.StatusOK {
		return c.statusError(path, response, body)
	}

	if err := decodeBody(response.Header.Get("Content-Type"), body, v); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

// statusError turns a non-200 response into an error, preserving the
// server's message when the body carries one. 404 wraps
// catalog.ErrNotFound so callers can branch on absence.
func (c *Client) statusError(path string, response *http.Response, body []byte) error {
	var parsed errorBody
	message := strings.TrimSpace(string(body))
	if err := decodeBody(response.Header.Get("Content-Type"), body, &parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	}

	if response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %s: %w", path, message, catalog.ErrNotFound)
	}
	return fmt.Errorf("GET %s: status %d: %s", path, response.StatusCode, message)
}

func decodeBody(contentType string, body []byte, v any) error {
	if strings.HasPrefix(contentType, contentTypeCBOR) {
		if err := codec.Unmarshal(body, v); err != nil {
			return fmt.Errorf("decoding CBOR response: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding JSON response: %w", err)
	}
	return nil
}
