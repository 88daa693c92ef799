// Package shortid はクリップボードの短い公開IDを生成する。
// IDは62種（英大文字・英小文字・数字)のアルファベットから各文字を
// 独立かつ一様にランダムに選んだ固定長6文字の文字列で、
// 連番や時刻に由来する構造を一切持たない。
package shortid

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Alphabet はID生成に使用する62種の記号集合。
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length は生成されるIDの固定長。
// 62^6 ≈ 5.68×10^10 の空間があり、衝突確率は実用上無視できる。
const Length = 6

// ExistsFunc はIDが既に使用済みかどうかを判定する述語。
// ストアの存在チェックを注入する。
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Generator はクリップボードIDを生成する。
// 乱数源は注入可能で、テストではシード固定のrand.Randを渡すことで
// 決定的な出力を得られる。
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator は指定された乱数源を使うGeneratorを生成する。
// rngがnilの場合はcrypto/randから取得したシードで初期化した
// math/randソースを使用する。
// 各文字の選択にはRand.Intnを使うため、バイト値の剰余で起きる
// 偏りは生じない。
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		var seed [8]byte
		if _, err := cryptorand.Read(seed[:]); err != nil {
			// crypto/randが失敗する環境は想定しないが、
			// エラー時もゼロシードで動作は継続する。
			binary.LittleEndian.PutUint64(seed[:], 0)
		}
		rng = rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
	}
	return &Generator{rng: rng}
}

// Generate は6文字のランダムIDを1つ生成する。
// 副作用はなく、一意性の保証はGenerateUnique側が担う。
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = Alphabet[g.rng.Intn(len(Alphabet))]
	}
	return string(buf)
}

// GenerateUnique はexistsがfalseを返すIDが得られるまでGenerateを繰り返す。
// ループに反復上限は設けない。62^6の空間では衝突は事実上起きないが、
// 病的な衝突率の下でも正しく新しいIDを返し続けることを
// レイテンシ上限より優先する。
// existsがエラーを返した場合は生成を中断しそのエラーを返す。
func (g *Generator) GenerateUnique(ctx context.Context, exists ExistsFunc) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("id generation canceled: %w", err)
		}

		id := g.Generate()
		used, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("id存在チェックに失敗しました: %w", err)
		}
		if !used {
			return id, nil
		}
	}
}
