package waitlist

import (
	"strings"
	"time"
)

// Subscriber 补货等候订阅者
// 设计说明:
// 1. 唯一身份是归一化的联系方式:小写邮箱,无邮箱时用规范化手机号
// 2. Notified在一次(尝试过的)投递后置true,作为至少一次投递的去重标记
// 3. RearmCount/UpdatedAt单调递增,用于双键合并时的冲突仲裁
type Subscriber struct {
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	EmailConsent  bool      `json:"email_consent"`
	SMSConsent    bool      `json:"sms_consent"`
	ProductID     int64     `json:"product_id"`
	ProductHandle string    `json:"product_handle,omitempty"`
	ProductURL    string    `json:"product_url,omitempty"`
	Notified      bool      `json:"notified"`
	RearmCount    int       `json:"rearm_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity 归一化联系身份
// 口径:优先小写邮箱;无邮箱时用规范化手机号;都没有则为空(非法记录)
func (s *Subscriber) Identity() string {
	if e := NormalizeEmail(s.Email); e != "" {
		return e
	}
	if p, ok := NormalizePhone(s.Phone); ok {
		return p
	}
	return ""
}

// NormalizeEmail 邮箱归一化:去空白+小写
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}

// NormalizePhone 手机号规范化(E.164风格)
// 规则:剥离分隔符,保留前导+,10-15位数字有效
// 返回ok=false表示无法规范化(短信通道会因此被跳过)
func NormalizePhone(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", false
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if n := digits.Len(); n < 10 || n > 15 {
		return "", false
	}
	return "+" + digits.String(), true
}

// =========================================
// 合并与更新
// =========================================

// Merge 按联系身份合并两个列表
// primary来自ID键,secondary来自handle键
// 冲突仲裁:UpdatedAt较新者胜,相同时间primary(ID键)优先
// 幂等:Merge(xs, xs) ≡ 去重后的xs
func Merge(primary, secondary []*Subscriber) []*Subscriber {
	byIdentity := make(map[string]*Subscriber)
	var order []string

	take := func(s *Subscriber) {
		id := s.Identity()
		if id == "" {
			return // 无联系方式的记录丢弃
		}
		cur, ok := byIdentity[id]
		if !ok {
			byIdentity[id] = s
			order = append(order, id)
			return
		}
		// 仅严格更新时替换:平局保留已有记录,primary先进所以平局ID键优先
		if s.UpdatedAt.After(cur.UpdatedAt) {
			byIdentity[id] = s
		}
	}

	for _, s := range primary {
		take(s)
	}
	for _, s := range secondary {
		take(s)
	}

	out := make([]*Subscriber, 0, len(order))
	for _, id := range order {
		out = append(out, byIdentity[id])
	}
	return out
}

// Upsert 幂等登记/重登记
// 重复报名不产生重复条目:刷新联系方式与同意标志,重置Notified,
// 递增RearmCount并前移UpdatedAt(重新武装通知)
func Upsert(list []*Subscriber, incoming *Subscriber, now time.Time) []*Subscriber {
	id := incoming.Identity()
	if id == "" {
		return list
	}

	for i, s := range list {
		if s.Identity() != id {
			continue
		}
		merged := *s
		if incoming.Email != "" {
			merged.Email = incoming.Email
		}
		if incoming.Phone != "" {
			merged.Phone = incoming.Phone
		}
		merged.EmailConsent = incoming.EmailConsent
		merged.SMSConsent = incoming.SMSConsent
		merged.Notified = false
		merged.RearmCount = s.RearmCount + 1
		merged.UpdatedAt = now
		list[i] = &merged
		return list
	}

	fresh := *incoming
	if fresh.CreatedAt.IsZero() {
		fresh.CreatedAt = now
	}
	fresh.UpdatedAt = now
	return append(list, &fresh)
}

// Pending 过滤出待通知的订阅者(Notified==false)
func Pending(list []*Subscriber) []*Subscriber {
	var out []*Subscriber
	for _, s := range list {
		if !s.Notified {
			out = append(out, s)
		}
	}
	return out
}
