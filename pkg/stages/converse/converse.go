// Package converse drives a multi-turn conversation with a vision chat model
// over the images of an output directory.
package converse

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

// ErrInvalidGroupSize is returned for a group size below one.
var ErrInvalidGroupSize = errors.New("group size must be at least 1")

// Defaults for chat requests. A zero Temperature is sent as is.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

// Stage sends image groups to a chat client one request at a time.
type Stage struct {
	fs      ports.FileSystem
	client  ports.ChatClient
	limiter ports.Limiter
	logger  ports.Logger
	metrics ports.Metrics
}

// NewStage creates a new converse stage. limiter is waited on before every request.
func NewStage(fs ports.FileSystem, client ports.ChatClient, limiter ports.Limiter, logger ports.Logger, metrics ports.Metrics) *Stage {
	return &Stage{
		fs:      fs,
		client:  client,
		limiter: limiter,
		logger:  logger.WithComponent("converse"),
		metrics: metrics,
	}
}

// ListImages returns the .jpg, .jpeg and .png files in dir sorted by name.
func ListImages(fs ports.FileSystem, dir string) ([]string, error) {
	names, err := fs.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	images := make([]string, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg", ".png":
			images = append(images, name)
		}
	}
	sort.Strings(images)
	return images, nil
}

// Group splits items into consecutive chunks of size; the last may be shorter.
func Group(items []string, size int) [][]string {
	var groups [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[i:end])
	}
	return groups
}

// DataURL returns a base64 data URL for an image file's bytes.
func DataURL(name string, data []byte) string {
	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(name), ".png") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Execute runs the conversation. The whole history is sent with every request.
func (s *Stage) Execute(ctx context.Context, input pipeline.ConverseInput) (pipeline.ConverseResult, error) {
	if input.GroupSize < 1 {
		return pipeline.ConverseResult{}, fmt.Errorf("%w, got %d", ErrInvalidGroupSize, input.GroupSize)
	}
	if input.MaxTokens <= 0 {
		input.MaxTokens = DefaultMaxTokens
	}

	images, err := ListImages(s.fs, input.Dir)
	if err != nil {
		return pipeline.ConverseResult{}, err
	}
	if len(images) == 0 {
		return pipeline.ConverseResult{}, fmt.Errorf("%w: %s", ports.ErrEmptyOutputDirectory, input.Dir)
	}

	groups := Group(images, input.GroupSize)
	s.logger.Info("Sending %d images in %d groups", len(images), len(groups))

	var result pipeline.ConverseResult
	for i, group := range groups {
		msg := ports.ChatMessage{Role: ports.RoleUser, Parts: []ports.ChatPart{{Text: input.Prompt}}}
		for _, name := range group {
			data, err := s.fs.ReadFile(filepath.Join(input.Dir, name))
			if err != nil {
				return result, fmt.Errorf("read %s: %w", name, err)
			}
			msg.Parts = append(msg.Parts, ports.ChatPart{ImageURL: DataURL(name, data)})
		}
		result.Messages = append(result.Messages, msg)

		reply, err := s.complete(ctx, input, result.Messages)
		if err != nil {
			return result, fmt.Errorf("group %d: %w", i+1, err)
		}
		result.Messages = append(result.Messages, ports.TextMessage(ports.RoleAssistant, reply))
		result.Groups = append(result.Groups, pipeline.GroupReply{Index: i + 1, Images: group, Reply: reply})
		s.logger.Debug("[Group %d] %s", i+1, reply)
	}

	if input.FollowUp != "" {
		result.FollowUp = input.FollowUp
		result.Messages = append(result.Messages, ports.TextMessage(ports.RoleUser, input.FollowUp))

		reply, err := s.complete(ctx, input, result.Messages)
		if err != nil {
			return result, fmt.Errorf("follow-up: %w", err)
		}
		result.Messages = append(result.Messages, ports.TextMessage(ports.RoleAssistant, reply))
		result.FinalAnswer = reply
	}

	return result, nil
}

func (s *Stage) complete(ctx context.Context, input pipeline.ConverseInput, history []ports.ChatMessage) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := s.client.Complete(ctx, ports.ChatRequest{
		Model:       input.Model,
		Messages:    history,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxTokens,
	})
	if err != nil {
		s.metrics.ChatRequest("error")
		return "", err
	}
	s.metrics.ChatRequest("ok")
	return resp.Content, nil
}

var _ pipeline.Stage[pipeline.ConverseInput, pipeline.ConverseResult] = (*Stage)(nil)
