// Package idgen 生成命令调用的关联 ID
//
//	gen := idgen.New()
//	requestID := gen.RequestID() // "req-1234567890"
package idgen
