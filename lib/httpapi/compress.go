// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"github.com/klauspost/compress/zstd"
)

// zstdEncoder and zstdDecoder are reused across requests to avoid
// repeated initialization overhead. Both are safe for concurrent use
// in the EncodeAll/DecodeAll forms used here.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("httpapi: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("httpapi: zstd decoder initialization failed: " + err.Error())
	}
}
