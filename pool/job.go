package pool

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	uuid "github.com/satori/go.uuid"

	"github.com/solidusnet/solidus/chainparams"
)

// Job is a mining work unit handed to a connected miner (spec.md §4.5
// "Jobs", §6 "Miner protocol").
type Job struct {
	JobID      string `json:"job_id"`
	Difficulty int64  `json:"difficulty"`
	Target     string `json:"target"`
	Blob       string `json:"blob"`
	SeedHash   string `json:"seed_hash"`
	Height     uint64 `json:"height"`
	ExtraNonce string `json:"extra_nonce"`
	Algo       string `json:"algo"`
}

// v3AgentPrefix identifies legacy v3-style miners that expect an 8-byte
// little-endian target instead of the 24-byte form (spec.md §6).
const v3AgentPrefix = "yada-miner/3"

// seedHashForAlgo returns the fixed per-algorithm seed hash (spec.md §4.5:
// "seed_hash is fixed per algorithm").
func seedHashForAlgo(algo string) string {
	switch algo {
	case "rx/0":
		return "a6b4e1e3d8f2c90a1b3d5e7f90123456789abcdef0123456789abcdef012345"
	default:
		return "0000000000000000000000000000000000000000000000000000000000000000"
	}
}

// BlockTemplate returns a job derived from the current candidate, with a
// fresh random extra_nonce substituted into the candidate header's nonce
// placeholder, and a pool-difficulty target sized for the miner's agent
// string (spec.md §4.5, §6).
func (p *Pool) BlockTemplate(agent string) (Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.candidate == nil {
		return Job{}, ErrNoCandidate
	}

	extraNonce, err := randomHex(8)
	if err != nil {
		return Job{}, err
	}

	algo := "rx/0"
	target := p.poolTargetForAgent(agent)

	job := Job{
		JobID:      uuid.NewV4().String(),
		Difficulty: p.poolDiff,
		Target:     target,
		Blob:       strings.Replace(p.candidate.Header, "{nonce}", extraNonce+"{nonce}", 1),
		SeedHash:   seedHashForAlgo(algo),
		Height:     p.candidate.Index,
		ExtraNonce: extraNonce,
		Algo:       algo,
	}

	targetInt, _ := new(big.Int).SetString(p.candidate.Target, 16)
	entry := issuedJob{
		candidateHeader: p.candidate.Header,
		extraNonce:      extraNonce,
		target:          targetInt,
		poolTarget:      poolTargetInt(p.poolDiff),
		special:         p.special,
		index:           p.candidate.Index,
	}
	if p.special {
		specialInt, _ := new(big.Int).SetString(p.candidate.SpecialTarget, 16)
		entry.specialTarget = specialInt
	}
	p.jobs[job.JobID] = entry

	return job, nil
}

// poolTargetForAgent renders the pool-difficulty ceiling at the byte width
// legacy v3 miners expect (8-byte little-endian hex) or the wider 24-byte
// form used by everything else (spec.md §6).
func (p *Pool) poolTargetForAgent(agent string) string {
	width := 24
	if strings.HasPrefix(agent, v3AgentPrefix) {
		width = 8
	}
	t := poolTargetInt(p.poolDiff)
	return littleEndianHex(t, width)
}

func poolTargetInt(poolDiff int64) *big.Int {
	if poolDiff <= 0 {
		poolDiff = 1
	}
	return new(big.Int).Div(new(big.Int).Set(chainparams.MaxTarget), big.NewInt(poolDiff))
}

func littleEndianHex(v *big.Int, width int) string {
	buf := make([]byte, width)
	b := v.Bytes()
	// v.Bytes() is big-endian, MSB first, shorter than width typically.
	for i := 0; i < len(b) && i < width; i++ {
		buf[i] = b[len(b)-1-i]
	}
	return hex.EncodeToString(buf)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
