package waitlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sub(email string, updated time.Time) *Subscriber {
	return &Subscriber{Email: email, EmailConsent: true, UpdatedAt: updated}
}

// TestIdentity 联系身份归一化
func TestIdentity(t *testing.T) {
	s := &Subscriber{Email: " Jane.Doe@Example.COM "}
	require.Equal(t, "jane.doe@example.com", s.Identity())

	// 无邮箱时用规范化手机号
	s = &Subscriber{Phone: "+86 138-0013-8000"}
	require.Equal(t, "+8613800138000", s.Identity())

	// 都没有 → 空身份(非法记录)
	s = &Subscriber{Phone: "12345"}
	require.Equal(t, "", s.Identity())
}

// TestNormalizePhone 手机号规范化边界
func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+1 (555) 123-4567", "+15551234567", true},
		{"13800138000", "+13800138000", true},
		{"555-1234", "", false},             // 过短
		{"12345678901234567890", "", false}, // 过长
		{"", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		require.Equal(t, tc.ok, ok, "输入%q", tc.in)
		require.Equal(t, tc.want, got, "输入%q", tc.in)
	}
}

// TestMerge_Idempotent 列表与自身合并结果不变
func TestMerge_Idempotent(t *testing.T) {
	list := []*Subscriber{
		sub("a@x.com", t0),
		sub("b@x.com", t0.Add(time.Hour)),
	}

	merged := Merge(list, list)
	require.Len(t, merged, 2)
	require.Equal(t, "a@x.com", merged[0].Email)
	require.Equal(t, "b@x.com", merged[1].Email)
}

// TestMerge_DualKeyConflict 双键同身份 → 恰好一条,较新者胜
func TestMerge_DualKeyConflict(t *testing.T) {
	older := sub("a@x.com", t0)
	older.RearmCount = 1
	newer := sub("A@X.com", t0.Add(time.Hour)) // 大小写不同,同一身份
	newer.RearmCount = 2

	merged := Merge([]*Subscriber{older}, []*Subscriber{newer})
	require.Len(t, merged, 1)
	require.Equal(t, 2, merged[0].RearmCount, "应保留时间较新的记录")

	// 平局时ID键(primary)优先
	tieA := sub("a@x.com", t0)
	tieA.RearmCount = 7
	tieB := sub("a@x.com", t0)
	tieB.RearmCount = 9
	merged = Merge([]*Subscriber{tieA}, []*Subscriber{tieB})
	require.Len(t, merged, 1)
	require.Equal(t, 7, merged[0].RearmCount, "平局应保留ID键的记录")
}

// TestMerge_DropsIdentityless 无联系方式的记录被丢弃
func TestMerge_DropsIdentityless(t *testing.T) {
	merged := Merge([]*Subscriber{{Notified: true}}, nil)
	require.Empty(t, merged)
}

// TestUpsert_Idempotent 重复报名不产生重复条目
func TestUpsert_Idempotent(t *testing.T) {
	var list []*Subscriber

	first := &Subscriber{Email: "a@x.com", EmailConsent: true}
	list = Upsert(list, first, t0)
	require.Len(t, list, 1)
	require.Equal(t, 0, list[0].RearmCount)
	require.Equal(t, t0, list[0].CreatedAt)

	// 已通知过的老订阅者重新报名:重置Notified,递增RearmCount
	list[0].Notified = true
	again := &Subscriber{Email: "A@x.com", EmailConsent: true, SMSConsent: true, Phone: "+15551234567"}
	list = Upsert(list, again, t0.Add(time.Hour))
	require.Len(t, list, 1)
	require.False(t, list[0].Notified, "重新报名应重置通知标记")
	require.Equal(t, 1, list[0].RearmCount)
	require.True(t, list[0].SMSConsent)
	require.Equal(t, "+15551234567", list[0].Phone)
	require.Equal(t, t0.Add(time.Hour), list[0].UpdatedAt)
	require.Equal(t, t0, list[0].CreatedAt, "CreatedAt保持首次报名时间")
}

// TestPending 过滤待通知
func TestPending(t *testing.T) {
	a := sub("a@x.com", t0)
	b := sub("b@x.com", t0)
	b.Notified = true

	pending := Pending([]*Subscriber{a, b})
	require.Len(t, pending, 1)
	require.Equal(t, "a@x.com", pending[0].Email)
}
