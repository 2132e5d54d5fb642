package notify

import (
	"context"
	"log"
	"time"

	"github.com/xiebiao/stockwatch/internal/domain/waitlist"
)

// ProductContext 通知里的商品上下文(冗余到营销侧,供下游模板使用)
type ProductContext struct {
	ID          int64
	Handle      string
	Title       string
	URL         string
	RestockDate string
}

// Marketer 营销自动化API接口(依赖倒置原则)
// 三个外部副作用对应营销侧的三类对象,互相独立
type Marketer interface {
	// Subscribe 把订阅者加入补货通知列表
	// smsOK=true时同时登记短信通道
	Subscribe(ctx context.Context, sub *waitlist.Subscriber, smsOK bool) error

	// StampProfile 把商品上下文冗余写到订阅者档案属性
	StampProfile(ctx context.Context, sub *waitlist.Subscriber, product ProductContext) error

	// TrackEvent 提交补货事件(触发营销侧的flow)
	TrackEvent(ctx context.Context, sub *waitlist.Subscriber, product ProductContext) error
}

// Result 一次商品级派发的统计
type Result struct {
	Attempted int // 尝试的订阅者数
	Emails    int // 邮件通道成功登记数
	SMS       int // 短信通道成功登记数
	Errors    int // 副作用失败次数(按次计,一个订阅者最多3次)
}

// Dispatcher 通知派发器
// 设计说明:
// 1. 三个副作用独立尝试、独立捕获错误,一个失败不阻断其余
// 2. 无论副作用成败,尝试过即置Notified=true:
//    至少一次投递语义,崩在投递与落盘之间时可能重复发,不承诺恰好一次
// 3. 每pauseEvery个订阅者暂停pauseFor,尊重营销API自身的限流
type Dispatcher struct {
	marketer   Marketer
	pauseEvery int
	pauseFor   time.Duration
	sleep      func(time.Duration) // 可注入,测试免等待
}

// NewDispatcher 创建派发器
func NewDispatcher(marketer Marketer, pauseEvery int, pauseFor time.Duration) *Dispatcher {
	if pauseEvery <= 0 {
		pauseEvery = 5
	}
	return &Dispatcher{
		marketer:   marketer,
		pauseEvery: pauseEvery,
		pauseFor:   pauseFor,
		sleep:      time.Sleep,
	}
}

// Dispatch 对一组待通知订阅者逐个派发
// 调用方负责候选过滤(Notified==false)和派发后的列表落盘
func (d *Dispatcher) Dispatch(ctx context.Context, product ProductContext, pending []*waitlist.Subscriber) Result {
	var res Result

	for i, sub := range pending {
		if i > 0 && i%d.pauseEvery == 0 && d.pauseFor > 0 {
			d.sleep(d.pauseFor)
		}

		res.Attempted++

		// 短信通道门槛:同意标志 + 手机号可规范化,缺一不可
		_, phoneOK := waitlist.NormalizePhone(sub.Phone)
		smsOK := sub.SMSConsent && phoneOK

		if err := d.marketer.Subscribe(ctx, sub, smsOK); err != nil {
			res.Errors++
			log.Printf("[notify] 订阅失败 product=%d identity=%s: %v", product.ID, sub.Identity(), err)
		} else {
			res.Emails++
			if smsOK {
				res.SMS++
			}
		}

		if err := d.marketer.StampProfile(ctx, sub, product); err != nil {
			res.Errors++
			log.Printf("[notify] 档案写入失败 product=%d identity=%s: %v", product.ID, sub.Identity(), err)
		}

		if err := d.marketer.TrackEvent(ctx, sub, product); err != nil {
			res.Errors++
			log.Printf("[notify] 事件提交失败 product=%d identity=%s: %v", product.ID, sub.Identity(), err)
		}

		// 至少一次语义:尝试过就打标,不回滚
		sub.Notified = true
	}

	return res
}
