// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/reverts"
)

// Config is the YAML engine configuration. Amounts are decimal strings at
// the 1e18 token scale; durations are seconds.
type Config struct {
	Admins    []string `yaml:"admins"`
	Operators []string `yaml:"operators"`

	LockupOptions []struct {
		Duration uint64 `yaml:"duration"`
		APYBps   uint64 `yaml:"apyBps"`
	} `yaml:"lockupOptions"`

	Validators []struct {
		ID            uint64 `yaml:"id"`
		CommissionBps uint64 `yaml:"commissionBps"`
	} `yaml:"validators"`

	MinStake         string `yaml:"minStake"`
	CooldownPeriod   uint64 `yaml:"cooldownPeriod"`
	BucketWindow     uint64 `yaml:"bucketWindow"`
	BucketCapacity   uint32 `yaml:"bucketCapacity"`
	AutoOpenBuckets  bool   `yaml:"autoOpenBuckets"`
	WithholdRatioBps uint64 `yaml:"withholdRatioBps"`
	InstantFeeBps    uint64 `yaml:"instantFeeBps"`
	StandardFeeBps   uint64 `yaml:"standardFeeBps"`
	InstantUtilBps   uint64 `yaml:"instantUtilBps"`
	PenaltyBps       uint64 `yaml:"penaltyBps"`
	FeeRecipient     string `yaml:"feeRecipient"`
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return &cfg, nil
}

func parseAddrs(raw []string) ([]plume.Address, error) {
	out := make([]plume.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := plume.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, s)
		}
		out = append(out, addr)
	}
	return out, nil
}

// apply pushes the config into the engine through the admin surface,
// acting as the first configured admin.
func (c *Config) apply(m *staking.Minter, now uint64) error {
	if len(c.Admins) == 0 {
		return errors.New("config needs at least one admin")
	}
	admin, err := plume.ParseAddress(c.Admins[0])
	if err != nil {
		return errors.WithMessage(err, "admin")
	}

	if len(c.LockupOptions) > 0 {
		opts := make([]ledger.LockupOption, 0, len(c.LockupOptions))
		for _, o := range c.LockupOptions {
			opts = append(opts, ledger.LockupOption{Duration: o.Duration, APYBps: o.APYBps})
		}
		if err := m.SetLockupOptions(admin, opts); err != nil {
			return errors.Wrap(err, "lockup options")
		}
	}
	for _, v := range c.Validators {
		err := m.AddValidator(admin, registry.Validator{
			ID:            registry.ID(v.ID),
			CommissionBps: v.CommissionBps,
			TotalStaked:   new(big.Int),
			Active:        true,
			AddedAt:       now,
		})
		if err != nil && !errors.Is(err, reverts.ErrValidatorExists) {
			return errors.Wrap(err, "validator")
		}
	}

	if c.MinStake != "" {
		min, ok := new(big.Int).SetString(c.MinStake, 10)
		if !ok {
			return errors.New("invalid minStake")
		}
		if err := m.SetMinStake(admin, min); err != nil {
			return err
		}
	}
	type step struct {
		skip bool
		fn   func() error
	}
	steps := []step{
		{c.CooldownPeriod == 0, func() error { return m.SetCooldownPeriod(admin, c.CooldownPeriod) }},
		{c.BucketWindow == 0, func() error { return m.SetBucketWindow(admin, c.BucketWindow) }},
		{c.BucketCapacity == 0, func() error { return m.SetBucketCapacity(admin, c.BucketCapacity) }},
		{false, func() error { return m.SetAutoOpenBuckets(admin, c.AutoOpenBuckets) }},
		{false, func() error { return m.SetWithholdRatio(admin, c.WithholdRatioBps) }},
		{false, func() error { return m.SetInstantFee(admin, c.InstantFeeBps) }},
		{false, func() error { return m.SetStandardFee(admin, c.StandardFeeBps) }},
		{c.InstantUtilBps == 0, func() error { return m.SetInstantUtil(admin, c.InstantUtilBps) }},
		{false, func() error { return m.SetPenalty(admin, c.PenaltyBps) }},
	}
	for _, s := range steps {
		if s.skip {
			continue
		}
		if err := s.fn(); err != nil {
			return err
		}
	}
	if c.FeeRecipient != "" {
		recipient, err := plume.ParseAddress(c.FeeRecipient)
		if err != nil {
			return errors.WithMessage(err, "feeRecipient")
		}
		if err := m.SetFeeRecipient(admin, recipient); err != nil {
			return err
		}
	}
	return nil
}
