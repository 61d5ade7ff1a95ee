package votedec

import (
	"errors"
	"fmt"

	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/internal/utils"
)

// 链上 VoteState 布局（bincode）：
// https://github.com/anza-xyz/agave/blob/master/sdk/program/src/vote/state/mod.rs
// data[0:4] 为版本号：0 = V0_23_5（已淘汰），1 = V1_14_11，2 = Current。
// 两种线上可见版本（1、2）仅 votes 条目布局不同：
// V1_14_11 的 Lockout 为 (slot u64, confirmation_count u32)，
// Current 的 LandedVote 额外带 1 字节 latency 前缀。

// ErrUnsupportedVoteLayout 表示未知/过期的 VoteState 版本（跳过并计数，不致命）
var ErrUnsupportedVoteLayout = errors.New("unsupported vote state layout")

// IsUnsupportedLayout 判断 err 是否为版本不支持（区别于数据损坏）
func IsUnsupportedLayout(err error) bool {
	return errors.Is(err, ErrUnsupportedVoteLayout)
}

const (
	voteLayoutV0_23_5 = 0
	voteLayoutV1_14   = 1
	voteLayoutCurrent = 2

	// 解析上限，防御损坏数据
	maxVotes          = 1024
	maxAuthVoters     = 64
	maxEpochCredits   = 1024
	priorVotersBytes  = 32*(32+8+8) + 8 + 1 // CircBuf: 32 项 + idx + is_empty
	lockoutBytes      = 12
	landedVoteBytes   = 13
	authVoterBytes    = 8 + 32
	epochCreditsBytes = 24
)

// EpochCredit 表示 epoch_credits 中的一条 (epoch, credits, prev_credits)
type EpochCredit struct {
	Epoch       uint64 `json:"epoch"`
	Credits     uint64 `json:"credits"`
	PrevCredits uint64 `json:"prev_credits"`
}

// VoteAccountRecord 是一个 vote account 解码后的校验者信息
type VoteAccountRecord struct {
	VoteAccount  types.Pubkey
	NodePubkey   types.Pubkey // 校验者身份地址
	Commission   uint8
	EpochCredits []EpochCredit // 按 epoch 升序，仅保留最近 window 条
}

// Decode 解析 vote account 数据。creditsWindow 限定保留的 epoch_credits 条数，
// <=0 时不截断。
func Decode(voteAccount types.Pubkey, data []byte, creditsWindow int) (*VoteAccountRecord, error) {
	r := utils.NewBinReader(data)
	version := r.ReadU32()
	if r.Err() != nil {
		return nil, fmt.Errorf("vote account %s: %w", voteAccount, r.Err())
	}

	var perVoteBytes int
	switch version {
	case voteLayoutV1_14:
		perVoteBytes = lockoutBytes
	case voteLayoutCurrent:
		perVoteBytes = landedVoteBytes
	default:
		return nil, fmt.Errorf("%w: version %d (account %s)", ErrUnsupportedVoteLayout, version, voteAccount)
	}

	record := &VoteAccountRecord{VoteAccount: voteAccount}
	record.NodePubkey = r.ReadPubkey()
	r.Skip(32) // authorized_withdrawer
	record.Commission = r.ReadU8()

	// votes（仅跳过，聚合不需要逐票锁定信息）
	votesLen := r.ReadVecLen(maxVotes)
	r.Skip(int(votesLen) * perVoteBytes)

	r.ReadOptionU64() // root_slot

	// authorized_voters: BTreeMap<epoch, pubkey>
	authLen := r.ReadVecLen(maxAuthVoters)
	r.Skip(int(authLen) * authVoterBytes)

	// prior_voters 定长环形缓冲
	r.Skip(priorVotersBytes)

	creditsLen := r.ReadVecLen(maxEpochCredits)
	credits := make([]EpochCredit, 0, creditsLen)
	for i := uint64(0); i < creditsLen; i++ {
		credits = append(credits, EpochCredit{
			Epoch:       r.ReadU64(),
			Credits:     r.ReadU64(),
			PrevCredits: r.ReadU64(),
		})
	}

	if r.Err() != nil {
		return nil, fmt.Errorf("vote account %s: %w", voteAccount, r.Err())
	}

	// 只保留最近 window 条（更早的历史不参与任何下游计算）
	if creditsWindow > 0 && len(credits) > creditsWindow {
		credits = credits[len(credits)-creditsWindow:]
	}
	record.EpochCredits = credits
	return record, nil
}

// LatestCredits 返回最近一条 epoch_credits；history 为空时 ok=false
func (v *VoteAccountRecord) LatestCredits() (EpochCredit, bool) {
	if len(v.EpochCredits) == 0 {
		return EpochCredit{}, false
	}
	return v.EpochCredits[len(v.EpochCredits)-1], true
}
