package service

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// Setup 不需要额外配置
func (s *Service) Setup(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.SetupAnswer, cmd.ContextMap()).
		Set("_reconnect", false).
		Succeed("success - NOP")
}

func (s *Service) Ready(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.ReadyAnswer, cmd.ContextMap()).Succeed("")
}

func (s *Service) CheckNetwork(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.CheckNetworkAnswer, cmd.ContextMap()).Succeed("")
}

func (s *Service) CheckHealth(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.CheckHealthAnswer, cmd.ContextMap()).Succeed("resource is alive")
}

func (s *Service) CheckOnHost(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.CheckOnHostAnswer, cmd.ContextMap()).Succeed("resource is alive")
}

// Maintain 进入维护模式时虚拟机由编排器迁移
func (s *Service) Maintain(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.MaintainAnswer, cmd.ContextMap()).
		Set("willMigrate", true).
		Set("_reconnect", false).
		Succeed("success - NOP for MaintainCommand")
}

func (s *Service) Ping(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.Answer, cmd.ContextMap()).
		Set("_reconnect", false).
		Succeed("success - NOP for PingCommand")
}

func (s *Service) PingRouting(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.Answer, cmd.ContextMap()).
		Set("_reconnect", false).
		Succeed("success - NOP for PingRoutingCommand")
}

// CleanupNetworkRules 没有需要清理的网络规则，result 固定为 false
func (s *Service) CleanupNetworkRules(ctx context.Context, cmd *command.Command) *command.Answer {
	return command.NewAnswer(command.Answer, cmd.ContextMap()).
		Fail("nothing to cleanup in our current implementation")
}

type checkSSHRequest struct {
	Name     string `json:"name"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Interval int    `json:"interval"` // 秒
	Retries  int    `json:"retries"`
}

// CheckSsh 检查虚拟机的 sshd 是否可用
// 能进入认证阶段即认为 sshd 已经启动
func (s *Service) CheckSsh(ctx context.Context, cmd *command.Command) *command.Answer {
	logger := zerolog.Ctx(ctx)
	ans := command.NewAnswer(command.CheckSshAnswer, cmd.ContextMap())

	var req checkSSHRequest
	if err := decode(cmd, &req); err != nil {
		return failed(ctx, ans, cmd, err)
	}
	if req.IP == "" {
		return failed(ctx, ans, cmd, apierror.Invalidf("ip is empty"))
	}
	if req.Port == 0 {
		req.Port = 22
	}
	retries := max(req.Retries, 1)
	addr := net.JoinHostPort(req.IP, strconv.Itoa(req.Port))

	var lastErr error
	for i := 0; i < retries; i++ {
		if i > 0 && req.Interval > 0 {
			select {
			case <-ctx.Done():
				return failed(ctx, ans, cmd, ctx.Err())
			case <-time.After(time.Duration(req.Interval) * time.Second):
			}
		}

		if lastErr = s.probeSSH(ctx, addr); lastErr == nil {
			logger.Info().
				Str("vm_name", req.Name).
				Str("addr", addr).
				Int("attempt", i+1).
				Msg("sshd is alive")
			return ans.Succeed("")
		}
		logger.Debug().
			Err(lastErr).
			Str("addr", addr).
			Int("attempt", i+1).
			Msg("ssh probe failed")
	}

	return failed(ctx, ans, cmd, apierror.IO("Can not ping System vm "+req.Name+" at "+addr, lastErr))
}

// probeSSH 完成 ssh 握手，认证失败也说明 sshd 可用
func (s *Service) probeSSH(ctx context.Context, addr string) error {
	dialer := net.Dialer{Timeout: s.sshTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.sshTimeout))

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            "root",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.sshTimeout,
	})
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil
		}
		return err
	}
	ssh.NewClient(c, chans, reqs).Close()
	return nil
}
