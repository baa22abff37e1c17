package idgen

import (
	"strconv"
	"time"

	"github.com/sony/sonyflake"
)

// requestPrefix 请求关联 ID 的前缀
const requestPrefix = "req-"

// Generator 基于 Sonyflake 生成时间有序的请求关联 ID
type Generator struct {
	sf *sonyflake.Sonyflake
}

// New 创建新的 ID 生成器
func New() *Generator {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if sf == nil {
		// 没有可用的私有 IP 时 machine ID 推导会失败，退化为固定 machine ID
		sf = sonyflake.NewSonyflake(sonyflake.Settings{
			StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			MachineID: func() (uint16, error) { return 1, nil },
		})
	}
	return &Generator{sf: sf}
}

// NextID 返回下一个递增 ID
func (g *Generator) NextID() (uint64, error) {
	return g.sf.NextID()
}

// RequestID 返回 req-<id>，一次命令调用产生的所有日志都携带该 ID
// Sonyflake 出错（时钟回拨超出容忍范围等）时退化为纳秒时间戳，调用方不需要处理错误
func (g *Generator) RequestID() string {
	id, err := g.sf.NextID()
	if err != nil {
		return requestPrefix + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return requestPrefix + strconv.FormatUint(id, 10)
}
