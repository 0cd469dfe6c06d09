// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	flag "github.com/spf13/pflag"
)

// Record is the audit trail of one signed attestation.
type Record struct {
	Publication string         `json:"publication"`
	Signer      common.Address `json:"signer"`
	Nonce       uint64         `json:"nonce"`
	Judgment    hexutil.Bytes  `json:"judgment"`
	ModuleData  hexutil.Bytes  `json:"moduleData"`
	Attestation hexutil.Bytes  `json:"attestation"`
}

// Key identifies a record by the hash of its attestation.
func (r *Record) Key() string {
	return crypto.Keccak256Hash(r.Attestation).Hex()
}

type Archive interface {
	Store(ctx context.Context, record *Record) (string, error)
}

type S3Config struct {
	Enable    bool   `koanf:"enable"`
	AccessKey string `koanf:"access-key"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	SecretKey string `koanf:"secret-key"`
	Prefix    string `koanf:"prefix"`
}

type ArchiveConfig struct {
	Dir string   `koanf:"dir"`
	S3  S3Config `koanf:"s3"`
}

var DefaultArchiveConfig = ArchiveConfig{
	S3: S3Config{Prefix: "attestations/"},
}

func ArchiveConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".dir", DefaultArchiveConfig.Dir, "directory to keep a copy of every signed attestation in (disabled if empty)")
	f.Bool(prefix+".s3.enable", DefaultArchiveConfig.S3.Enable, "upload every signed attestation to S3")
	f.String(prefix+".s3.access-key", DefaultArchiveConfig.S3.AccessKey, "S3 access key")
	f.String(prefix+".s3.bucket", DefaultArchiveConfig.S3.Bucket, "S3 bucket")
	f.String(prefix+".s3.region", DefaultArchiveConfig.S3.Region, "S3 region")
	f.String(prefix+".s3.secret-key", DefaultArchiveConfig.S3.SecretKey, "S3 secret key")
	f.String(prefix+".s3.prefix", DefaultArchiveConfig.S3.Prefix, "S3 object key prefix")
}

func (c *ArchiveConfig) Validate() error {
	if c.S3.Enable && c.S3.Bucket == "" {
		return errors.New("archive.s3.bucket must be set when S3 archiving is enabled")
	}
	return nil
}

// NewArchive returns the configured archives, or nil if none is enabled.
func NewArchive(config *ArchiveConfig) (Archive, error) {
	var archives multiArchive
	if config.Dir != "" {
		local, err := NewLocalArchive(config.Dir)
		if err != nil {
			return nil, err
		}
		archives = append(archives, local)
	}
	if config.S3.Enable {
		archives = append(archives, NewS3Archive(config.S3))
	}
	switch len(archives) {
	case 0:
		return nil, nil
	case 1:
		return archives[0], nil
	}
	return archives, nil
}

type multiArchive []Archive

func (m multiArchive) Store(ctx context.Context, record *Record) (string, error) {
	var key string
	for _, a := range m {
		k, err := a.Store(ctx, record)
		if err != nil {
			return "", err
		}
		key = k
	}
	return key, nil
}

// LocalArchive writes one JSON file per record.
type LocalArchive struct {
	dir string
}

func NewLocalArchive(dir string) (*LocalArchive, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating archive directory %s: %w", dir, err)
	}
	return &LocalArchive{dir: dir}, nil
}

func (a *LocalArchive) Path(key string) string {
	return filepath.Join(a.dir, key+".json")
}

func (a *LocalArchive) Store(_ context.Context, record *Record) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", err
	}
	key := record.Key()
	target := a.Path(key)
	// Use a temp file and rename to achieve atomic writes.
	f, err := os.CreateTemp(a.dir, key+".*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(f.Name(), target); err != nil {
		return "", err
	}
	log.Debug("archived attestation", "path", target)
	return key, nil
}

func (a *LocalArchive) Load(key string) (*Record, error) {
	data, err := os.ReadFile(a.Path(key))
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Archive struct {
	config   S3Config
	uploader S3Uploader
}

func NewS3Archive(config S3Config) *S3Archive {
	client := s3.New(s3.Options{
		Region:      config.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")),
	})
	return NewS3ArchiveWithUploader(config, manager.NewUploader(client))
}

func NewS3ArchiveWithUploader(config S3Config, uploader S3Uploader) *S3Archive {
	return &S3Archive{config: config, uploader: uploader}
}

func (a *S3Archive) Store(ctx context.Context, record *Record) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	key := record.Key()
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Bucket),
		Key:         aws.String(a.config.Prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading attestation %s: %w", key, err)
	}
	return key, nil
}

func (a *S3Archive) String() string {
	return fmt.Sprintf("S3Archive(%s/%s)", a.config.Bucket, a.config.Prefix)
}
