package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// buildMessage 构造 multipart/alternative 邮件
//
// 文本部分在前、HTML 在后，客户端按惯例取最后一个能渲染的部分。
func buildMessage(from, to, subject, htmlBody, textBody string) ([]byte, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	headers := []struct {
		key   string
		value string
	}{
		{"From", from},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", time.Now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(from))},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary())},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	if err := writeTextPart(mw, "text/plain", textBody); err != nil {
		return nil, err
	}
	if err := writeTextPart(mw, "text/html", htmlBody); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTextPart 写入一个 quoted-printable 编码的文本部分
func writeTextPart(mw *multipart.Writer, mediaType, body string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mediaType+"; charset=utf-8")
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}

	qw := quotedprintable.NewWriter(part)
	if _, err := qw.Write([]byte(body)); err != nil {
		return err
	}
	return qw.Close()
}

// senderDomain 取发件地址的域名部分，用于 Message-ID
func senderDomain(from string) string {
	if idx := strings.LastIndex(from, "@"); idx >= 0 {
		return from[idx+1:]
	}
	return "localhost"
}
