package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/idgen"
)

// HandlerFunc 处理一条命令并返回应答
type HandlerFunc func(ctx context.Context, cmd *command.Command) *command.Answer

// BatchHandlerFunc 处理请求体为数组、应答也为数组的命令（只有 StartupCommand）
type BatchHandlerFunc func(ctx context.Context, cmd *command.Command) ([]json.RawMessage, error)

// Dispatcher 根据命令名选择处理器
type Dispatcher struct {
	handlers map[string]HandlerFunc
	batch    map[string]BatchHandlerFunc
	idGen    *idgen.Generator
}

// NewDispatcher 创建分发器并注册 svc 的所有处理器
func NewDispatcher(svc *Service) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		batch:    make(map[string]BatchHandlerFunc),
		idGen:    idgen.New(),
	}
	if svc != nil {
		svc.register(d)
	}
	return d
}

// Register 注册处理器，同时注册完整类型名和短名
func (d *Dispatcher) Register(name string, h HandlerFunc) {
	d.handlers[name] = h
	d.handlers[shortName(name)] = h
}

// RegisterBatch 注册数组形式的处理器
func (d *Dispatcher) RegisterBatch(name string, h BatchHandlerFunc) {
	d.batch[name] = h
	d.batch[shortName(name)] = h
}

// Commands 返回已注册的命令名
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers)+len(d.batch))
	for name := range d.handlers {
		names = append(names, name)
	}
	for name := range d.batch {
		names = append(names, name)
	}
	return names
}

// Dispatch 执行命令，总是返回格式正确的应答数组
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload json.RawMessage) []json.RawMessage {
	requestID := d.idGen.RequestID()
	logger := zerolog.Ctx(ctx).With().
		Str("request_id", requestID).
		Str("command", shortName(name)).
		Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Str("payload", command.Redact(payload)).Msg("Received command")

	cmd := &command.Command{Name: name, Payload: payload}
	start := time.Now()

	if h, ok := d.batch[name]; ok {
		out, err := d.runBatch(ctx, h, cmd)
		if err != nil {
			ans := command.NewAnswer(command.Answer, cmd.ContextMap())
			failed(ctx, ans, cmd, err)
			observe(shortName(name), false, time.Since(start).Seconds())
			return d.encode(ctx, ans)
		}
		observe(shortName(name), true, time.Since(start).Seconds())
		for _, item := range out {
			logger.Info().Str("answer", command.Redact(item)).Msg("Command answered")
		}
		return out
	}

	h, ok := d.handlers[name]
	if !ok {
		ans := command.NewAnswer(command.UnsupportedAnswer, cmd.ContextMap())
		ans.Fail("Unsupported command " + name)
		logger.Warn().Msg("Unsupported command")
		observe("unsupported", false, time.Since(start).Seconds())
		return d.encode(ctx, ans)
	}

	ans := d.run(ctx, h, cmd)
	observe(shortName(name), ans.Result, time.Since(start).Seconds())
	return d.encode(ctx, ans)
}

// run 在处理器边界恢复 panic
func (d *Dispatcher) run(ctx context.Context, h HandlerFunc, cmd *command.Command) (ans *command.Answer) {
	defer func() {
		if r := recover(); r != nil {
			commandPanics.WithLabelValues(shortName(cmd.Name)).Inc()
			zerolog.Ctx(ctx).Error().
				Str("stack", string(debug.Stack())).
				Msgf("Handler panicked: %v", r)
			ans = command.NewAnswer(command.Answer, cmd.ContextMap())
			ans.Fail(fmt.Sprintf("%s failed due to %v", shortName(cmd.Name), r))
		}
	}()

	ans = h(ctx, cmd)
	if ans == nil {
		ans = command.NewAnswer(command.Answer, cmd.ContextMap())
		ans.Fail(shortName(cmd.Name) + " failed due to empty answer")
	}
	return ans
}

func (d *Dispatcher) runBatch(ctx context.Context, h BatchHandlerFunc, cmd *command.Command) (out []json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			commandPanics.WithLabelValues(shortName(cmd.Name)).Inc()
			zerolog.Ctx(ctx).Error().
				Str("stack", string(debug.Stack())).
				Msgf("Handler panicked: %v", r)
			err = fmt.Errorf("%v", r)
		}
	}()
	return h(ctx, cmd)
}

func (d *Dispatcher) encode(ctx context.Context, ans *command.Answer) []json.RawMessage {
	logger := zerolog.Ctx(ctx)

	data, err := json.Marshal(ans)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode answer")
		fallback := command.NewAnswer(ans.Type, ans.ContextMap).Fail("failed to encode answer: " + err.Error())
		data, _ = json.Marshal(fallback)
	}

	logger.Info().
		Bool("result", ans.Result).
		Str("answer", command.Redact(data)).
		Msg("Command answered")
	return []json.RawMessage{data}
}

func (s *Service) register(d *Dispatcher) {
	// 虚拟机生命周期
	d.Register(command.StartCommand, s.Start)
	d.Register(command.StopCommand, s.Stop)
	d.Register(command.RebootCommand, s.Reboot)
	d.Register(command.MigrateCommand, s.Migrate)
	d.Register(command.PrepareForMigrationCommand, s.PrepareForMigration)
	d.Register(command.CheckVirtualMachineCommand, s.CheckVirtualMachine)
	d.Register(command.GetVncPortCommand, s.GetVncPort)
	d.Register(command.GetVmStatsCommand, s.GetVmStats)
	d.Register(command.GetHostStatsCommand, s.GetHostStats)

	// 磁盘与卷
	d.Register(command.AttachCommand, s.Attach)
	d.Register(command.DettachCommand, s.Dettach)
	d.Register(command.CreateCommand, s.Create)
	d.Register(command.CreateObjectCommand, s.CreateObject)
	d.Register(command.DestroyCommand, s.Destroy)
	d.Register(command.DeleteCommand, s.Delete)
	d.Register(command.PrimaryStorageDownloadCommand, s.PrimaryStorageDownload)
	d.Register(command.CopyCommand, s.Copy)

	// 存储池
	d.Register(command.CreateStoragePoolCommand, s.CreateStoragePool)
	d.Register(command.ModifyStoragePoolCommand, s.ModifyStoragePool)
	d.Register(command.DeleteStoragePoolCommand, s.DeleteStoragePool)
	d.Register(command.GetStorageStatsCommand, s.GetStorageStats)

	// 握手与健康检查
	d.RegisterBatch(command.StartupCommand, s.Startup)
	d.Register(command.SetupCommand, s.Setup)
	d.Register(command.ReadyCommand, s.Ready)
	d.Register(command.CheckHealthCommand, s.CheckHealth)
	d.Register(command.CheckOnHostCommand, s.CheckOnHost)
	d.Register(command.CheckNetworkCommand, s.CheckNetwork)
	d.Register(command.CheckSshCommand, s.CheckSsh)
	d.Register(command.MaintainCommand, s.Maintain)
	d.Register(command.PingCommand, s.Ping)
	d.Register(command.PingRoutingCommand, s.PingRouting)
	d.Register(command.CleanupNetworkRulesCmd, s.CleanupNetworkRules)
}
