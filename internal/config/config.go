/*
Copyright © 2025 JetBrains s.r.o.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file read from the working directory.
const FileName = ".qodana-ci.yaml"

// Push modes of quick fixes.
const (
	PushNone        = "none"
	PushBranch      = "branch"
	PushPullRequest = "pull-request"
)

// Cache backends.
const (
	CacheDir = "dir"
	CacheS3  = "s3"
)

// Source names the CI system the inputs come from; it decides how an input
// key maps to an environment variable.
type Source string

const (
	SourceGitHub Source = "github"
	SourceGitLab Source = "gitlab"
	SourceAzure  Source = "azure"
	SourceLocal  Source = "local"
)

// Config holds every input of a run.
type Config struct {
	Args             string            `yaml:"args"`
	ResultsDir       string            `yaml:"results-dir,omitempty" validate:"required"`
	CacheDir         string            `yaml:"cache-dir,omitempty" validate:"required"`
	CliVersion       string            `yaml:"cli-version" validate:"required"`
	UseNightly       bool              `yaml:"use-nightly"`
	PRMode           bool              `yaml:"pr-mode"`
	PostPRComment    bool              `yaml:"post-pr-comment"`
	UseAnnotations   bool              `yaml:"use-annotations"`
	UploadResult     bool              `yaml:"upload-result"`
	ArtifactName     string            `yaml:"artifact-name" validate:"required_with=UploadResult"`
	UseCaches        bool              `yaml:"use-caches"`
	CacheKey         string            `yaml:"cache-key"`
	CacheBackend     string            `yaml:"cache-backend" validate:"oneof=dir s3"`
	CacheRoot        string            `yaml:"cache-root,omitempty"`
	S3               S3                `yaml:"s3"`
	PushFixes        string            `yaml:"push-fixes" validate:"oneof=none branch pull-request"`
	CommitMessage    string            `yaml:"commit-message" validate:"required"`
	Namespace        string            `yaml:"namespace" validate:"required"`
	Version          string            `yaml:"version" validate:"required"`
	LicenseCharLimit int               `yaml:"license-char-limit" validate:"gte=0"`
	Checksums        map[string]string `yaml:"checksums,omitempty" validate:"dive,keys,required,endkeys,len=64,hexadecimal"`
	Debug            bool              `yaml:"debug"`
}

// S3 locates the bucket of the s3 cache backend.
type S3 struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	Prefix   string `yaml:"prefix"`
}

// Defaults returns the configuration used when nothing overrides it.
// Directories are created under tempDir.
func Defaults(tempDir string) Config {
	return Config{
		ResultsDir:       filepath.Join(tempDir, "qodana", "results"),
		CacheDir:         filepath.Join(tempDir, "qodana", "caches"),
		CliVersion:       DefaultCliVersion,
		PRMode:           true,
		PostPRComment:    true,
		UseAnnotations:   true,
		ArtifactName:     "qodana-report",
		UseCaches:        true,
		CacheBackend:     CacheDir,
		CacheRoot:        filepath.Join(tempDir, "qodana-ci-cache"),
		PushFixes:        PushNone,
		CommitMessage:    "🤖 Apply quick-fixes by Qodana",
		Namespace:        "JetBrains/qodana-ci",
		Version:          DefaultCliVersion,
		LicenseCharLimit: 65000,
	}
}

// DefaultCliVersion is the analyzer CLI release installed by default.
const DefaultCliVersion = "2025.1.1"

// LoadOptions controls Load.
type LoadOptions struct {
	Source Source
	// File is the YAML file to read; FileName in the working directory when empty.
	File    string
	TempDir string
	Getenv  func(string) string
}

// Load builds the configuration from defaults, the YAML file and the
// environment, later layers overriding earlier ones, and validates it.
func Load(opts LoadOptions) (Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	cfg := Defaults(tempDir)

	file := opts.File
	explicit := file != ""
	if !explicit {
		file = FileName
	}
	if err := readFile(file, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(reflect.ValueOf(&cfg).Elem(), "", envKey(opts.Source), getenv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "decode config file %s", path)
	}
	return nil
}

// envKey maps an input key such as results-dir to the variable holding it.
func envKey(source Source) func(string) string {
	switch source {
	case SourceGitHub:
		// GitHub keeps dashes: INPUT_RESULTS-DIR.
		return func(key string) string { return "INPUT_" + strings.ToUpper(key) }
	case SourceAzure:
		return func(key string) string { return "INPUT_" + strings.ToUpper(strings.ReplaceAll(key, "-", "")) }
	default:
		return func(key string) string { return "QODANA_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_")) }
	}
}

// applyEnv overrides the string, bool and int fields of v with the
// environment. Nested structs extend the key with their own name.
func applyEnv(v reflect.Value, prefix string, name func(string) string, getenv func(string) string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if key == "" || key == "-" {
			continue
		}
		key = prefix + key

		value := v.Field(i)
		if value.Kind() == reflect.Struct {
			if err := applyEnv(value, key+"-", name, getenv); err != nil {
				return err
			}
			continue
		}

		variable := name(key)
		raw := strings.TrimSpace(getenv(variable))
		if raw == "" {
			continue
		}
		switch value.Kind() {
		case reflect.String:
			value.SetString(raw)
		case reflect.Bool:
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return errors.Newf("%s: expected a boolean, got %q", variable, raw)
			}
			value.SetBool(parsed)
		case reflect.Int:
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return errors.Newf("%s: expected an integer, got %q", variable, raw)
			}
			value.SetInt(int64(parsed))
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		if cfg.UseCaches && cfg.CacheBackend == CacheS3 && cfg.S3.Bucket == "" {
			sl.ReportError(cfg.S3.Bucket, "bucket", "Bucket", "required_for_s3", "")
		}
	}, Config{})
	return v
}

// Validate checks cfg and reports every invalid field at once.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s: failed %q", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return errors.Newf("invalid configuration: %s", strings.Join(messages, "; "))
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
