package models

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Protocol-Lattice/inbox-agent/src/cache"
)

// CachedLLM wraps an Agent and caches Generate results by prompt hash.
// When FilePath is set the cache is reloaded at startup and rewritten after
// each miss.
type CachedLLM struct {
	Agent    Agent
	Cache    *cache.LRU[string]
	FilePath string
	Log      zerolog.Logger

	saveMu sync.Mutex
}

func NewCachedLLM(agent Agent, size int, ttl time.Duration, filePath string) *CachedLLM {
	c := &CachedLLM{
		Agent:    agent,
		Cache:    cache.New[string](size, ttl),
		FilePath: filePath,
		Log:      zerolog.Nop(),
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedLLM) load() {
	raw, err := os.ReadFile(c.FilePath)
	if err != nil {
		return // first run or unreadable; start cold
	}
	var dump map[string]cache.Entry[string]
	if err := json.Unmarshal(raw, &dump); err == nil {
		c.Cache.Restore(dump)
	}
}

func (c *CachedLLM) save() error {
	if c.FilePath == "" {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	raw, err := json.Marshal(c.Cache.Dump())
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.FilePath), ".llm-cache-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.FilePath)
}

// Generate checks the cache before calling the underlying agent. Errors and
// empty answers are never cached.
func (c *CachedLLM) Generate(ctx context.Context, prompt string) (any, error) {
	key := cache.HashKey(prompt)
	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}

	res, err := c.Agent.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	text := TextOf(res)
	if text == "" {
		return res, nil
	}
	c.Cache.Set(key, text)
	if err := c.save(); err != nil {
		c.Log.Warn().Err(err).Str("path", c.FilePath).Msg("persist llm cache")
	}
	return text, nil
}

var _ Agent = (*CachedLLM)(nil)
