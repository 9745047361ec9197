package domain

import "time"

//BackupFile holds data about the single backup file picked for upload
type BackupFile struct {

	//Path is the full name and path of the file on the local filesystem
	Path string

	//Name is the base name of the file. It doubles as the object key in the bucket
	Name string

	//Size is the size in bytes of the file
	Size int64

	//Created is the creation timestamp used to decide if this is today's backup
	Created time.Time
}

//CompletedPart is one transferred part of a multipart upload
type CompletedPart struct {

	//Number is the 1-based part number, assigned in the order parts are read
	Number int32

	//ETag is the opaque tag returned by the store for this part
	ETag string

	//Size is the number of bytes sent in this part
	Size int64
}

//UploadSession tracks an in-progress multipart upload. It lives only for one run
type UploadSession struct {
	Bucket   string
	Key      string
	UploadID string
	Parts    []CompletedPart
}

//Bytes returns the total number of bytes transferred so far
func (us *UploadSession) Bytes() int64 {
	var total int64
	for _, p := range us.Parts {
		total += p.Size
	}
	return total
}

//Alert is a one-shot failure message for the operator
type Alert struct {
	Subject string
	Message string
}
