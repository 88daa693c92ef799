package shortid

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

// 生成されるIDが固定長6文字であることを検証
func TestGenerate_Length(t *testing.T) {
	g := NewGenerator(nil)

	for i := 0; i < 100; i++ {
		id := g.Generate()
		if len(id) != Length {
			t.Fatalf("len(id) = %d, want %d (id=%q)", len(id), Length, id)
		}
	}
}

// 生成されるIDのすべての文字が英数字アルファベットに含まれることを検証
func TestGenerate_AlphabetOnly(t *testing.T) {
	g := NewGenerator(nil)

	for i := 0; i < 100; i++ {
		id := g.Generate()
		for _, c := range id {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("id %q に不正な文字 %q が含まれている", id, c)
			}
		}
	}
}

// シード固定の乱数源で出力が決定的になることを検証
func TestGenerate_DeterministicWithSeededSource(t *testing.T) {
	g1 := NewGenerator(rand.New(rand.NewSource(42)))
	g2 := NewGenerator(rand.New(rand.NewSource(42)))

	for i := 0; i < 10; i++ {
		id1 := g1.Generate()
		id2 := g2.Generate()
		if id1 != id2 {
			t.Fatalf("同一シードで異なるID: %q vs %q", id1, id2)
		}
	}
}

// 常に空の存在チェックに対して10,000回の生成で重複がないことを検証
// （統計的性質であり絶対保証ではない）
func TestGenerateUnique_NoDuplicatesIn10000(t *testing.T) {
	g := NewGenerator(nil)
	ctx := context.Background()

	neverExists := func(ctx context.Context, id string) (bool, error) {
		return false, nil
	}

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := g.GenerateUnique(ctx, neverExists)
		if err != nil {
			t.Fatalf("GenerateUnique() error = %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("重複IDが生成された: %q (iteration %d)", id, i)
		}
		seen[id] = struct{}{}
	}
}

// 既存IDが拒否され、新しいIDが得られるまでリトライすることを検証
func TestGenerateUnique_RetriesOnCollision(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))
	ctx := context.Background()

	// 最初の3回の生成結果を「使用済み」として拒否する
	collisions := 3
	calls := 0
	exists := func(ctx context.Context, id string) (bool, error) {
		calls++
		return calls <= collisions, nil
	}

	id, err := g.GenerateUnique(ctx, exists)
	if err != nil {
		t.Fatalf("GenerateUnique() error = %v", err)
	}
	if id == "" {
		t.Fatal("空のIDが返された")
	}
	if calls != collisions+1 {
		t.Errorf("存在チェック呼び出し回数 = %d, want %d", calls, collisions+1)
	}
}

// 存在チェックがエラーを返した場合に生成を中断することを検証
func TestGenerateUnique_PropagatesExistsError(t *testing.T) {
	g := NewGenerator(nil)
	ctx := context.Background()

	wantErr := errors.New("db down")
	exists := func(ctx context.Context, id string) (bool, error) {
		return false, wantErr
	}

	_, err := g.GenerateUnique(ctx, exists)
	if err == nil {
		t.Fatal("エラーが返されなかった")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}

// コンテキストキャンセルでループが停止することを検証
func TestGenerateUnique_StopsOnContextCancel(t *testing.T) {
	g := NewGenerator(nil)
	ctx, cancel := context.WithCancel(context.Background())

	// すべてのIDを使用済みとして無限ループさせ、途中でキャンセルする
	calls := 0
	exists := func(ctx context.Context, id string) (bool, error) {
		calls++
		if calls == 5 {
			cancel()
		}
		return true, nil
	}

	_, err := g.GenerateUnique(ctx, exists)
	if err == nil {
		t.Fatal("キャンセル後もエラーが返されなかった")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
