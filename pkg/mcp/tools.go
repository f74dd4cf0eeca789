package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AnCIity/importlyrical/pkg/jsast"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

// Tool names.
const (
	ToolNameScan      = "importlyrical_scan"
	ToolNameTransform = "importlyrical_transform"
)

// MaxCodeInputBytes is the maximum inline code size (1 MB).
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode           = errors.New("code parameter is required and must not be empty")
	ErrEmptyFilename       = errors.New("filename parameter is required and must not be empty")
	ErrCodeTooLarge        = errors.New("code input exceeds maximum size")
	ErrUnsupportedLanguage = errors.New("filename is not a JavaScript or TypeScript module")
)

// ScanInput is the input schema for importlyrical_scan.
type ScanInput struct {
	Code     string `json:"code"     jsonschema:"module source code"`
	Filename string `json:"filename" jsonschema:"module filename, used to pick the grammar (e.g. src/App.tsx)"`
}

// TransformInput is the input schema for importlyrical_transform.
type TransformInput struct {
	Code      string `json:"code"                jsonschema:"module source code"`
	Filename  string `json:"filename"            jsonschema:"module filename; also the importer for package resolution"`
	Command   string `json:"command,omitempty"   jsonschema:"build or serve (default: serve)"`
	Sourcemap bool   `json:"sourcemap,omitempty" jsonschema:"include a source map of the input in the result"`
}

// ScanOutput lists the matched imports.
type ScanOutput struct {
	Imports []ondemand.Record `json:"imports"`
}

// TransformOutput is the rewritten module.
type TransformOutput struct {
	Code    string              `json:"code"`
	Changed bool                `json:"changed"`
	Imports []ondemand.Record   `json:"imports"`
	Map     *ondemand.SourceMap `json:"map,omitempty"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleScan(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ScanInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code, input.Filename)
	if err != nil {
		return errorResult(err)
	}

	dict, err := s.plugin.Scan(ctx, input.Code, input.Filename)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ScanOutput{Imports: dict.All()})
}

func (s *Server) handleTransform(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input TransformInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code, input.Filename)
	if err != nil {
		return errorResult(err)
	}

	command := ondemand.CommandServe
	if input.Command != "" {
		command, err = ondemand.ParseCommand(input.Command)
		if err != nil {
			return errorResult(err)
		}
	}

	env := ondemand.Env{Command: command, Sourcemap: input.Sourcemap}
	env.CombinedSourcemap = func() (*ondemand.SourceMap, error) {
		return ondemand.IdentitySourceMap(input.Filename, input.Code), nil
	}

	res, err := s.plugin.Transform(ctx, input.Code, input.Filename, env)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(TransformOutput{
		Code:    res.Code,
		Changed: res.Changed,
		Imports: res.Imports.All(),
		Map:     res.Map,
	})
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}

func validateCodeInput(code, filename string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if filename == "" {
		return ErrEmptyFilename
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	if jsast.DetectLanguage(filename, []byte(code)) == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filename)
	}

	return nil
}
