// Package apierror 提供 agent 内部统一的错误类型
//
// 命令处理器内部的每一步都返回 error，错误按以下类别划分：
//
//   - ErrInvalidParameter: 字段缺失、枚举值不支持、未知虚拟机名等
//   - ErrNotFound: 引用的资源不存在
//   - ErrUnsupported: 数据存储组合或 URI scheme 不受支持
//   - ErrIO: 网络共享、HTTP 下载、对象存储访问失败
//   - ErrInvariant: 执行后的一致性检查失败
//
// 处理器在边界处把错误转换为 answer 的 details：
//
//	if err != nil {
//	    return answer.Fail(fmt.Sprintf("%s failed due to %s", op, apierror.Detail(err)))
//	}
//
// 使用 errors.Is 判断类别：
//
//	if errors.Is(err, apierror.ErrInvariant) {
//	    logger.Error().Err(err).Msg("Consistency check failed")
//	}
package apierror
