package stats

import (
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"snapshot-indexer-sol/pkg/logger"
)

// RunStats 记录一次运行的各类计数。
// 可恢复错误（损坏记录、不支持的布局）只计数不中断，结束时统一输出，
// 绝不静默丢弃。
type RunStats struct {
	Scanned             atomic.Uint64
	VoteAccounts        atomic.Uint64
	StakeAccounts       atomic.Uint64
	TokenAccounts       atomic.Uint64
	Ignored             atomic.Uint64
	CorruptRecords      atomic.Uint64
	UnsupportedVote     atomic.Uint64
	NonDelegatedStakes  atomic.Uint64
	OrphanDelegations   atomic.Uint64
	ZeroStakeValidators atomic.Uint64
	TipDistributions    atomic.Uint64
	PriorityFeeDists    atomic.Uint64
	MetadataMisses      atomic.Uint64
}

// Merge 把另一份计数累加进来（worker 局部计数合并用）
func (s *RunStats) Merge(other *RunStats) {
	s.Scanned.Add(other.Scanned.Load())
	s.VoteAccounts.Add(other.VoteAccounts.Load())
	s.StakeAccounts.Add(other.StakeAccounts.Load())
	s.TokenAccounts.Add(other.TokenAccounts.Load())
	s.Ignored.Add(other.Ignored.Load())
	s.CorruptRecords.Add(other.CorruptRecords.Load())
	s.UnsupportedVote.Add(other.UnsupportedVote.Load())
	s.NonDelegatedStakes.Add(other.NonDelegatedStakes.Load())
	s.OrphanDelegations.Add(other.OrphanDelegations.Load())
	s.ZeroStakeValidators.Add(other.ZeroStakeValidators.Load())
	s.TipDistributions.Add(other.TipDistributions.Load())
	s.PriorityFeeDists.Add(other.PriorityFeeDists.Load())
	s.MetadataMisses.Add(other.MetadataMisses.Load())
}

// report 是统计的可序列化形式
type report struct {
	Scanned             uint64 `yaml:"scanned"`
	VoteAccounts        uint64 `yaml:"vote_accounts"`
	StakeAccounts       uint64 `yaml:"stake_accounts"`
	TokenAccounts       uint64 `yaml:"token_accounts"`
	Ignored             uint64 `yaml:"ignored"`
	CorruptRecords      uint64 `yaml:"corrupt_records"`
	UnsupportedVote     uint64 `yaml:"unsupported_vote_layouts"`
	NonDelegatedStakes  uint64 `yaml:"non_delegated_stakes"`
	OrphanDelegations   uint64 `yaml:"orphan_delegations"`
	ZeroStakeValidators uint64 `yaml:"zero_stake_validators"`
	TipDistributions    uint64 `yaml:"tip_distributions"`
	PriorityFeeDists    uint64 `yaml:"priority_fee_distributions"`
	MetadataMisses      uint64 `yaml:"metadata_misses"`
}

func (s *RunStats) snapshot() report {
	return report{
		Scanned:             s.Scanned.Load(),
		VoteAccounts:        s.VoteAccounts.Load(),
		StakeAccounts:       s.StakeAccounts.Load(),
		TokenAccounts:       s.TokenAccounts.Load(),
		Ignored:             s.Ignored.Load(),
		CorruptRecords:      s.CorruptRecords.Load(),
		UnsupportedVote:     s.UnsupportedVote.Load(),
		NonDelegatedStakes:  s.NonDelegatedStakes.Load(),
		OrphanDelegations:   s.OrphanDelegations.Load(),
		ZeroStakeValidators: s.ZeroStakeValidators.Load(),
		TipDistributions:    s.TipDistributions.Load(),
		PriorityFeeDists:    s.PriorityFeeDists.Load(),
		MetadataMisses:      s.MetadataMisses.Load(),
	}
}

// LogSummary 把计数写入日志
func (s *RunStats) LogSummary() {
	r := s.snapshot()
	logger.Infof("run stats: scanned=%d vote=%d stake=%d token=%d ignored=%d",
		r.Scanned, r.VoteAccounts, r.StakeAccounts, r.TokenAccounts, r.Ignored)
	if r.CorruptRecords > 0 || r.UnsupportedVote > 0 {
		logger.Warnf("run stats: corrupt_records=%d unsupported_vote_layouts=%d",
			r.CorruptRecords, r.UnsupportedVote)
	}
	if r.OrphanDelegations > 0 {
		logger.Warnf("run stats: orphan_delegations=%d（委托目标不在 vote 账户集中，已保留在输出中）",
			r.OrphanDelegations)
	}
}

// WriteReport 把计数以 YAML 写到 path（path 为空时跳过）
func (s *RunStats) WriteReport(path string) error {
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.snapshot())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
