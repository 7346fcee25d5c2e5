package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionUnknown Permission = "unknown"
)

type ProbeResult struct {
	Permission Permission `json:"permission"`
	Detail     string     `json:"detail,omitempty"`
}

type IPermissionProber interface {
	// Probe checks the token can read the account and, when set, the page.
	// Only a denied result should stop a publish; unknown fails open.
	Probe(ctx context.Context, accessSecret, accountID, pageID string) ProbeResult
}

const probeCacheTTL = 5 * time.Minute

type permissionProber struct {
	reader repository.IGraphReader
	cache  repository.IKeyValue
	ttl    time.Duration
}

// NewPermissionProber builds a prober; cache may be nil.
func NewPermissionProber(reader repository.IGraphReader, cache repository.IKeyValue, ttl time.Duration) IPermissionProber {
	if ttl <= 0 {
		ttl = probeCacheTTL
	}
	return &permissionProber{reader: reader, cache: cache, ttl: ttl}
}

func (p *permissionProber) Probe(ctx context.Context, accessSecret, accountID, pageID string) ProbeResult {
	lg := logger.GetLogger().WithField("account_id", accountID)
	key := probeCacheKey(accessSecret, accountID, pageID)
	if p.cache != nil {
		if _, ok, err := p.cache.Get(ctx, key); err == nil && ok {
			return ProbeResult{Permission: PermissionGranted}
		}
	}

	nodes := []string{accountID}
	if pageID != "" && pageID != accountID {
		nodes = append(nodes, pageID)
	}
	for _, node := range nodes {
		if err := p.reader.ReadNode(ctx, accessSecret, node, "id"); err != nil {
			if p.reader.IsPermissionDenial(err) {
				lg.WithField("node", node).WithField("error", err).Warn("permission probe denied")
				return ProbeResult{Permission: PermissionDenied, Detail: err.Error()}
			}
			lg.WithField("node", node).WithField("error", err).Info("permission probe inconclusive")
			return ProbeResult{Permission: PermissionUnknown, Detail: err.Error()}
		}
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, string(PermissionGranted), p.ttl); err != nil {
			lg.WithField("error", err).Warn("caching probe result failed")
		}
	}
	return ProbeResult{Permission: PermissionGranted}
}

func probeCacheKey(token, accountID, pageID string) string {
	sum := sha256.Sum256([]byte(token + "|" + accountID + "|" + pageID))
	return "probe:" + hex.EncodeToString(sum[:])
}
