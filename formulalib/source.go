// Alternate formulalib.Source implementations: a plain file, an S3
// bucket object, and a database/sql table row — the DOMAIN STACK table's
// formulalib.S3Source and formulalib.SQLSource. None of these have a
// teacher file to adapt (memcp's own S3/SQL code lives in its storage
// and scm packages over a different data model), so each is grounded
// directly on its own SDK's documented client-construction idiom instead.
package formulalib

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Source opens the raw bytes of a formula-library file, with no
// assumption about compression — callers combine it with DecompressReader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a library file from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// S3Source reads a library archive object from an S3 (or S3-compatible)
// bucket, per the DOMAIN STACK table's formulalib.S3Source.
type S3Source struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string // non-empty for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
}

func (s S3Source) client(ctx context.Context) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("formulalib: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
	}), nil
}

func (s S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	cli, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("formulalib: s3 GetObject %s/%s: %w", s.Bucket, s.Key, err)
	}
	return out.Body, nil
}

// SQLDialect selects the database/sql driver SQLSource registers its
// connection with.
type SQLDialect int

const (
	DialectMySQL SQLDialect = iota
	DialectPostgres
)

func (d SQLDialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	default:
		return "mysql"
	}
}

// SQLSource reads one formula body column out of a database/sql table,
// one driver per SQLDialect (go-sql-driver/mysql or lib/pq), per the
// DOMAIN STACK table's formulalib.SQLSource.
type SQLSource struct {
	Dialect SQLDialect
	DSN     string
	Table   string
	Column  string
	Where   string // e.g. "name = 'mandelbrot'"
}

func (s SQLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	db, err := sql.Open(s.Dialect.driverName(), s.DSN)
	if err != nil {
		return nil, fmt.Errorf("formulalib: open %s: %w", s.Dialect.driverName(), err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", s.Column, s.Table)
	if s.Where != "" {
		query += " WHERE " + s.Where
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("formulalib: query %s: %w", s.Table, err)
	}

	var bodies strings.Builder
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			rows.Close()
			db.Close()
			return nil, fmt.Errorf("formulalib: scan %s: %w", s.Table, err)
		}
		bodies.WriteString(body)
		bodies.WriteByte('\n')
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlReadCloser{Reader: strings.NewReader(bodies.String()), db: db}, nil
}

type sqlReadCloser struct {
	*strings.Reader
	db *sql.DB
}

func (c *sqlReadCloser) Close() error { return c.db.Close() }
