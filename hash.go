package main

import (
	"crypto/md5"
	"encoding/base64"
)

//base64-encoded MD5 of a part, the format S3 expects in Content-MD5
func hashPart(data []byte) string {
	h := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(h[:])
}
