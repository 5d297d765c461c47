package config

import (
	"testing"

	"github.com/annolab/framecache/internal/worker"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative capacity is clamped later", func(c *Config) { c.Capacity = -1 }, false},
		{"zero chunk size without mapper", func(c *Config) { c.ChunkSize = 0 }, true},
		{"zero chunk size with mapper", func(c *Config) {
			c.ChunkSize = 0
			c.ChunkOf = func(frameNumber int) int { return frameNumber / 8 }
		}, false},
		{"video without workers", func(c *Config) { c.BlockType = worker.BlockVideo }, true},
		{"video with workers", func(c *Config) {
			c.BlockType = worker.BlockVideo
			c.VideoWorkers = func() worker.VideoWorker { return nil }
		}, false},
		{"negative render size", func(c *Config) { c.RenderWidth = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkMapperDefault(t *testing.T) {
	cfg := NewConfig()
	cfg.ChunkSize = 10
	chunkOf := cfg.ChunkMapper()

	tests := []struct {
		frameNumber int
		expected    int
	}{
		{0, 0},
		{9, 0},
		{10, 1},
		{35, 3},
	}
	for _, tt := range tests {
		if got := chunkOf(tt.frameNumber); got != tt.expected {
			t.Errorf("chunkOf(%d) = %d, want %d", tt.frameNumber, got, tt.expected)
		}
	}
}

func TestChunkMapperOverride(t *testing.T) {
	cfg := NewConfig()
	cfg.ChunkOf = func(frameNumber int) int { return 42 }
	if got := cfg.ChunkMapper()(7); got != 42 {
		t.Errorf("chunkOf(7) = %d, want the override", got)
	}
}
