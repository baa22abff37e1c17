package command

// 编排器协议中的命令类型名
const (
	AttachCommand                 = "org.apache.cloudstack.storage.command.AttachCommand"
	DettachCommand                = "org.apache.cloudstack.storage.command.DettachCommand"
	CopyCommand                   = "org.apache.cloudstack.storage.command.CopyCommand"
	CreateObjectCommand           = "org.apache.cloudstack.storage.command.CreateObjectCommand"
	DeleteCommand                 = "org.apache.cloudstack.storage.command.DeleteCommand"
	CreateCommand                 = "com.cloud.agent.api.storage.CreateCommand"
	DestroyCommand                = "com.cloud.agent.api.storage.DestroyCommand"
	PrimaryStorageDownloadCommand = "com.cloud.agent.api.storage.PrimaryStorageDownloadCommand"
	StartCommand                  = "com.cloud.agent.api.StartCommand"
	StopCommand                   = "com.cloud.agent.api.StopCommand"
	RebootCommand                 = "com.cloud.agent.api.RebootCommand"
	MigrateCommand                = "com.cloud.agent.api.MigrateCommand"
	PrepareForMigrationCommand    = "com.cloud.agent.api.PrepareForMigrationCommand"
	CheckVirtualMachineCommand    = "com.cloud.agent.api.CheckVirtualMachineCommand"
	GetVncPortCommand             = "com.cloud.agent.api.GetVncPortCommand"
	GetVmStatsCommand             = "com.cloud.agent.api.GetVmStatsCommand"
	GetHostStatsCommand           = "com.cloud.agent.api.GetHostStatsCommand"
	CreateStoragePoolCommand      = "com.cloud.agent.api.CreateStoragePoolCommand"
	ModifyStoragePoolCommand      = "com.cloud.agent.api.ModifyStoragePoolCommand"
	DeleteStoragePoolCommand      = "com.cloud.agent.api.DeleteStoragePoolCommand"
	GetStorageStatsCommand        = "com.cloud.agent.api.GetStorageStatsCommand"
	StartupCommand                = "com.cloud.agent.api.StartupCommand"
	StartupRoutingCommand         = "com.cloud.agent.api.StartupRoutingCommand"
	StartupStorageCommand         = "com.cloud.agent.api.StartupStorageCommand"
	SetupCommand                  = "com.cloud.agent.api.SetupCommand"
	ReadyCommand                  = "com.cloud.agent.api.ReadyCommand"
	CheckHealthCommand            = "com.cloud.agent.api.CheckHealthCommand"
	CheckOnHostCommand            = "com.cloud.agent.api.CheckOnHostCommand"
	CheckNetworkCommand           = "com.cloud.agent.api.CheckNetworkCommand"
	CheckSshCommand               = "com.cloud.agent.api.check.CheckSshCommand"
	MaintainCommand               = "com.cloud.agent.api.MaintainCommand"
	PingCommand                   = "com.cloud.agent.api.PingCommand"
	PingRoutingCommand            = "com.cloud.agent.api.PingRoutingCommand"
	CleanupNetworkRulesCmd        = "com.cloud.agent.api.CleanupNetworkRulesCmd"
)

// 应答类型名
const (
	Answer                        = "com.cloud.agent.api.Answer"
	UnsupportedAnswer             = "com.cloud.agent.api.UnsupportedAnswer"
	AttachAnswer                  = "org.apache.cloudstack.storage.command.AttachAnswer"
	DettachAnswer                 = "org.apache.cloudstack.storage.command.DettachAnswer"
	CopyCmdAnswer                 = "org.apache.cloudstack.storage.command.CopyCmdAnswer"
	CreateObjectAnswer            = "org.apache.cloudstack.storage.command.CreateObjectAnswer"
	CreateAnswer                  = "com.cloud.agent.api.storage.CreateAnswer"
	PrimaryStorageDownloadAnswer  = "com.cloud.agent.api.storage.PrimaryStorageDownloadAnswer"
	StartAnswer                   = "com.cloud.agent.api.StartAnswer"
	StopAnswer                    = "com.cloud.agent.api.StopAnswer"
	RebootAnswer                  = "com.cloud.agent.api.RebootAnswer"
	MigrateAnswer                 = "com.cloud.agent.api.MigrateAnswer"
	PrepareForMigrationAnswer     = "com.cloud.agent.api.PrepareForMigrationAnswer"
	CheckVirtualMachineAnswer     = "com.cloud.agent.api.CheckVirtualMachineAnswer"
	GetVncPortAnswer              = "com.cloud.agent.api.GetVncPortAnswer"
	GetVmStatsAnswer              = "com.cloud.agent.api.GetVmStatsAnswer"
	GetHostStatsAnswer            = "com.cloud.agent.api.GetHostStatsAnswer"
	ModifyStoragePoolAnswer       = "com.cloud.agent.api.ModifyStoragePoolAnswer"
	GetStorageStatsAnswer         = "com.cloud.agent.api.GetStorageStatsAnswer"
	SetupAnswer                   = "com.cloud.agent.api.SetupAnswer"
	ReadyAnswer                   = "com.cloud.agent.api.ReadyAnswer"
	CheckHealthAnswer             = "com.cloud.agent.api.CheckHealthAnswer"
	CheckOnHostAnswer             = "com.cloud.agent.api.CheckOnHostAnswer"
	CheckNetworkAnswer            = "com.cloud.agent.api.CheckNetworkAnswer"
	CheckSshAnswer                = "com.cloud.agent.api.check.CheckSshAnswer"
	MaintainAnswer                = "com.cloud.agent.api.MaintainAnswer"
)

// 数据对象与数据存储类型名
const (
	VolumeObjectTO     = "org.apache.cloudstack.storage.to.VolumeObjectTO"
	TemplateObjectTO   = "org.apache.cloudstack.storage.to.TemplateObjectTO"
	PrimaryDataStoreTO = "org.apache.cloudstack.storage.to.PrimaryDataStoreTO"
	NfsTO              = "com.cloud.agent.api.to.NfsTO"
	S3TO               = "com.cloud.agent.api.to.S3TO"
	DiskTO             = "com.cloud.agent.api.to.DiskTO"
	VmStatsEntry       = "com.cloud.agent.api.VmStatsEntry"
	HostStatsEntry     = "com.cloud.agent.api.HostStatsEntry"
)
