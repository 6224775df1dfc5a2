package knowledge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/supportchat/pkg/logging"
	"golang.org/x/net/html"
)

// Document is a unit of source material. Chunks are stored as-is; Text is
// split before indexing.
type Document struct {
	Source string
	Text   string
	Chunks []string
}

// Source yields documents for ingestion.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
}

// LoadConversationJSONL formats {"input","output"} lines as "User: ...\nBot: ..."
// chunks. Malformed or incomplete lines are skipped and counted.
func LoadConversationJSONL(r io.Reader) (chunks []string, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj struct {
			Input  string `json:"input"`
			Output string `json:"output"`
		}
		if json.Unmarshal([]byte(line), &obj) != nil {
			skipped++
			continue
		}
		in, out := strings.TrimSpace(obj.Input), strings.TrimSpace(obj.Output)
		if in == "" || out == "" {
			skipped++
			continue
		}
		chunks = append(chunks, fmt.Sprintf("User: %s\nBot: %s", in, out))
	}
	if err := scanner.Err(); err != nil {
		return chunks, skipped, fmt.Errorf("knowledge: read jsonl: %w", err)
	}
	return chunks, skipped, nil
}

// DirSource reads .txt, .md and .jsonl files under a directory.
type DirSource struct {
	Dir    string
	Logger *logging.Logger
}

func (d DirSource) Load(ctx context.Context) ([]Document, error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.Default()
	}
	var docs []Document
	err := filepath.WalkDir(d.Dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			return nil
		}
		fh, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("knowledge: open %s: %w", path, err)
		}
		defer fh.Close()

		doc, ok, err := readDocument(path, fh, logger)
		if err != nil {
			return err
		}
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func readDocument(name string, r io.Reader, logger *logging.Logger) (Document, bool, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl":
		chunks, skipped, err := LoadConversationJSONL(r)
		if err != nil {
			return Document{}, false, err
		}
		if skipped > 0 {
			logger.Warn("knowledge: skipped jsonl lines", "source", name, "skipped", skipped)
		}
		return Document{Source: name, Chunks: chunks}, len(chunks) > 0, nil
	case ".txt", ".md":
		raw, err := io.ReadAll(r)
		if err != nil {
			return Document{}, false, fmt.Errorf("knowledge: read %s: %w", name, err)
		}
		return Document{Source: name, Text: string(raw)}, len(raw) > 0, nil
	default:
		return Document{}, false, nil
	}
}

type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads supported documents under a bucket prefix.
type S3Source struct {
	Client s3API
	Bucket string
	Prefix string
	Logger *logging.Logger
}

func (s S3Source) Load(ctx context.Context) ([]Document, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.Default()
	}
	var (
		docs  []Document
		token *string
	)
	for {
		page, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(s.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("knowledge: list s3://%s/%s: %w", s.Bucket, s.Prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			doc, ok, err := s.fetch(ctx, key, logger)
			if err != nil {
				return nil, err
			}
			if ok {
				docs = append(docs, doc)
			}
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	return docs, nil
}

func (s S3Source) fetch(ctx context.Context, key string, logger *logging.Logger) (Document, bool, error) {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".txt", ".md", ".jsonl":
	default:
		return Document{}, false, nil
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Document{}, false, fmt.Errorf("knowledge: get s3://%s/%s: %w", s.Bucket, key, err)
	}
	defer out.Body.Close()
	return readDocument("s3://"+s.Bucket+"/"+key, out.Body, logger)
}

// WebSource fetches pages and keeps their visible text.
type WebSource struct {
	URLs   []string
	Client *http.Client
}

func (w WebSource) Load(ctx context.Context) ([]Document, error) {
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	var docs []Document
	for _, u := range w.URLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("knowledge: build request %s: %w", u, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("knowledge: fetch %s: %w", u, err)
		}
		text, err := extractText(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("knowledge: parse %s: %w", u, err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("knowledge: fetch %s: status %d", u, resp.StatusCode)
		}
		if text != "" {
			docs = append(docs, Document{Source: u, Text: text})
		}
	}
	return docs, nil
}

// extractText returns the text nodes of an HTML page outside script and
// style elements, one line per node.
func extractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var (
		lines []string
		skip  int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.Join(lines, "\n"), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.Join(strings.Fields(string(z.Text())), " "); t != "" {
				lines = append(lines, t)
			}
		}
	}
}

func isHiddenTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
