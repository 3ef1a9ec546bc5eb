package advisor

import (
	"bufio"
	"io"
	"os"
)

// Upload is a recording received from a client.
type Upload struct {
	Name     string
	MIMEType string
	Body     io.Reader
}

func peek(r io.Reader) (io.Reader, []byte) {
	br := bufio.NewReaderSize(r, 512)
	head, _ := br.Peek(512)
	return br, head
}

type uploadReader struct {
	r io.Reader
}

func (u uploadReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if err != nil && err != io.EOF {
		err = &UploadError{Err: err}
	}
	return n, err
}

// writeFile copies r into path. Errors from r come back as *UploadError.
func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, uploadReader{r: r}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
