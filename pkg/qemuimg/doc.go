// Package qemuimg 封装 qemu-img 命令行工具的操作
//
// agent 只需要两个操作：
//   - 创建空磁盘（CreateEmpty），VHD 以动态格式创建
//   - 读取镜像信息（Info），用于获取虚拟大小
//
// 所有操作都支持 context 超时控制。
//
// 示例：
//
//	client := qemuimg.New("")
//	err := client.CreateEmpty(ctx, "vhd", "/pool/disk.vhd", 10<<30)
//	info, err := client.Info(ctx, "/pool/disk.vhd")
package qemuimg
