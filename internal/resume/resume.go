// Package resume loads résumé text from local files or S3 compatible storage.
package resume

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
)

const maxFileSize = 10 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	ErrEmptyResume       = errors.New("resume contains no text")
)

// S3Config points the loader at an S3 compatible endpoint such as R2 or MinIO.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
	PathStyle bool   `mapstructure:"path-style"`
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads résumés and returns their plain text.
type Loader struct {
	cfg    S3Config
	logger *zap.Logger
	s3     objectGetter
}

func New(cfg S3Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Load reads location, a local path or s3://bucket/key, and extracts its text.
// The format is chosen by extension: .txt and .md as is, .pdf and .docx parsed.
func (l *Loader) Load(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("resume location is empty")
	}

	var (
		data []byte
		name string
		err  error
	)
	if strings.HasPrefix(location, "s3://") {
		data, name, err = l.readS3(ctx, location)
	} else {
		data, err = readLocal(location)
		name = filepath.Base(location)
	}
	if err != nil {
		return "", err
	}

	text, err := Extract(name, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", location, err)
	}

	l.logger.Debug("resume loaded", zap.String("location", location), zap.Int("length", len(text)))
	return text, nil
}

// Extract returns the text of a résumé file named name.
func Extract(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".txt", ".md", ".text":
		text = string(data)
	case ".pdf":
		text, err = pdfText(data)
	case ".docx":
		text, err = docxText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResume
	}
	return text, nil
}

func readLocal(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("reading resume: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("resume %q is larger than %d bytes", p, maxFileSize)
	}
	return os.ReadFile(p)
}

func parseS3(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", location, err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location %q needs a bucket and a key", location)
	}
	return bucket, key, nil
}

func (l *Loader) readS3(ctx context.Context, location string) ([]byte, string, error) {
	bucket, key, err := parseS3(location)
	if err != nil {
		return nil, "", err
	}

	client, err := l.client(ctx)
	if err != nil {
		return nil, "", err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(out.Body, maxFileSize+1)); err != nil {
		return nil, "", fmt.Errorf("failed to read object body: %w", err)
	}
	if buf.Len() > maxFileSize {
		return nil, "", fmt.Errorf("resume %q is larger than %d bytes", location, maxFileSize)
	}
	return buf.Bytes(), key, nil
}

func (l *Loader) client(ctx context.Context) (objectGetter, error) {
	if l.s3 != nil {
		return l.s3, nil
	}

	region := l.cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if l.cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.cfg.AccessKey, l.cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}

	l.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if l.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(l.cfg.Endpoint)
		}
		o.UsePathStyle = l.cfg.PathStyle
	})
	return l.s3, nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return wordXMLText(doc.Editable().GetContent())
}

// wordXMLText keeps the text runs of a WordprocessingML body, one line per paragraph.
func wordXMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteString(" ")
			case "br":
				b.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
