package scripts

import (
	"strings"
	"text/template"

	"github.com/buildforever/farmctl/internal/config"
)

// UnattendParams selects the content of one generated autounattend.xml.
type UnattendParams struct {
	OS       config.OS
	Username string
	Password string

	// StaticIP may carry CIDR notation; Gateway and DNS are only used when
	// StaticIP is set.
	StaticIP string
	Gateway  string
	DNS      string
}

// installImageName maps each Windows variant to the image name Setup must
// pick from the install media.
func installImageName(os config.OS) string {
	switch os {
	case config.OSWindows11:
		return "Windows 11 Pro"
	case config.OSWinServer2022:
		return "Windows Server 2022 SERVERSTANDARD"
	case config.OSWinServer2025:
		return "Windows Server 2025 SERVERSTANDARD"
	default:
		return "Windows 10 Pro"
	}
}

// virtioFolder maps each Windows variant to the driver folder on the VirtIO
// ISO.
func virtioFolder(os config.OS) string {
	switch os {
	case config.OSWindows11:
		return "w11"
	case config.OSWinServer2022:
		return "2k22"
	case config.OSWinServer2025:
		return "2k25"
	default:
		return "w10"
	}
}

type unattendData struct {
	ImageName    string
	VirtioFolder string
	Username     string
	Password     string
	StaticIP     string
	Prefix       string
	Gateway      string
	DNS          string
}

var autounattendTmpl = template.Must(template.New("autounattend").Parse(`<?xml version="1.0" encoding="utf-8"?>
<unattend xmlns="urn:schemas-microsoft-com:unattend" xmlns:wcm="http://schemas.microsoft.com/WMIConfig/2002/State">
    <settings pass="windowsPE">
        <component name="Microsoft-Windows-International-Core-WinPE" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS">
            <SetupUILanguage>
                <UILanguage>en-US</UILanguage>
            </SetupUILanguage>
            <InputLocale>en-US</InputLocale>
            <SystemLocale>en-US</SystemLocale>
            <UILanguage>en-US</UILanguage>
            <UserLocale>en-US</UserLocale>
        </component>
        <component name="Microsoft-Windows-PnpCustomizationsWinPE" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS" xmlns:wcm="http://schemas.microsoft.com/WMIConfig/2002/State">
            <DriverPaths>
                <PathAndCredentials wcm:action="add" wcm:keyValue="1">
                    <Path>E:\vioscsi\{{.VirtioFolder}}\amd64</Path>
                </PathAndCredentials>
                <PathAndCredentials wcm:action="add" wcm:keyValue="2">
                    <Path>E:\viostor\{{.VirtioFolder}}\amd64</Path>
                </PathAndCredentials>
                <PathAndCredentials wcm:action="add" wcm:keyValue="3">
                    <Path>E:\NetKVM\{{.VirtioFolder}}\amd64</Path>
                </PathAndCredentials>
                <PathAndCredentials wcm:action="add" wcm:keyValue="4">
                    <Path>E:\Balloon\{{.VirtioFolder}}\amd64</Path>
                </PathAndCredentials>
                <PathAndCredentials wcm:action="add" wcm:keyValue="5">
                    <Path>E:\qxldod\{{.VirtioFolder}}\amd64</Path>
                </PathAndCredentials>
                <PathAndCredentials wcm:action="add" wcm:keyValue="6">
                    <Path>E:\vioserial\{{.VirtioFolder}}\amd64</Path>
                </PathAndCredentials>
            </DriverPaths>
        </component>
        <component name="Microsoft-Windows-Setup" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS">
            <DiskConfiguration>
                <Disk wcm:action="add">
                    <CreatePartitions>
                        <CreatePartition wcm:action="add">
                            <Order>1</Order>
                            <Type>EFI</Type>
                            <Size>512</Size>
                        </CreatePartition>
                        <CreatePartition wcm:action="add">
                            <Order>2</Order>
                            <Type>MSR</Type>
                            <Size>128</Size>
                        </CreatePartition>
                        <CreatePartition wcm:action="add">
                            <Order>3</Order>
                            <Type>Primary</Type>
                            <Extend>true</Extend>
                        </CreatePartition>
                    </CreatePartitions>
                    <ModifyPartitions>
                        <ModifyPartition wcm:action="add">
                            <Order>1</Order>
                            <PartitionID>1</PartitionID>
                            <Format>FAT32</Format>
                            <Label>System</Label>
                        </ModifyPartition>
                        <ModifyPartition wcm:action="add">
                            <Order>2</Order>
                            <PartitionID>2</PartitionID>
                        </ModifyPartition>
                        <ModifyPartition wcm:action="add">
                            <Order>3</Order>
                            <PartitionID>3</PartitionID>
                            <Format>NTFS</Format>
                            <Label>Windows</Label>
                            <Letter>C</Letter>
                        </ModifyPartition>
                    </ModifyPartitions>
                    <DiskID>0</DiskID>
                    <WillWipeDisk>true</WillWipeDisk>
                </Disk>
            </DiskConfiguration>
            <ImageInstall>
                <OSImage>
                    <InstallTo>
                        <DiskID>0</DiskID>
                        <PartitionID>3</PartitionID>
                    </InstallTo>
                    <InstallFrom>
                        <MetaData wcm:action="add">
                            <Key>/IMAGE/NAME</Key>
                            <Value>{{.ImageName}}</Value>
                        </MetaData>
                    </InstallFrom>
                </OSImage>
            </ImageInstall>
            <UserData>
                <ProductKey>
                    <WillShowUI>OnError</WillShowUI>
                </ProductKey>
                <AcceptEula>true</AcceptEula>
            </UserData>
        </component>
    </settings>
    <settings pass="specialize">
        <component name="Microsoft-Windows-Shell-Setup" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS">
            <ComputerName>*</ComputerName>
            <TimeZone>UTC</TimeZone>
        </component>
{{- if .StaticIP}}
        <component name="Microsoft-Windows-TCPIP" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS">
            <Interfaces>
                <Interface wcm:action="add">
                    <Identifier>Ethernet</Identifier>
                    <Ipv4Settings>
                        <DhcpEnabled>false</DhcpEnabled>
                    </Ipv4Settings>
                    <UnicastIpAddresses>
                        <IpAddress wcm:action="add" wcm:keyValue="1">{{.StaticIP}}/{{.Prefix}}</IpAddress>
                    </UnicastIpAddresses>
                    <Routes>
                        <Route wcm:action="add">
                            <Identifier>1</Identifier>
                            <NextHopAddress>{{.Gateway}}</NextHopAddress>
                            <Prefix>0.0.0.0/0</Prefix>
                        </Route>
                    </Routes>
                </Interface>
            </Interfaces>
        </component>
        <component name="Microsoft-Windows-DNS-Client" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS">
            <Interfaces>
                <Interface wcm:action="add">
                    <Identifier>Ethernet</Identifier>
                    <DNSServerSearchOrder>
                        <IpAddress wcm:action="add" wcm:keyValue="1">{{.DNS}}</IpAddress>
                    </DNSServerSearchOrder>
                </Interface>
            </Interfaces>
        </component>
{{- end}}
    </settings>
    <settings pass="oobeSystem">
        <component name="Microsoft-Windows-Shell-Setup" processorArchitecture="amd64" publicKeyToken="31bf3856ad364e35" language="neutral" versionScope="nonSxS">
            <OOBE>
                <HideEULAPage>true</HideEULAPage>
                <HideLocalAccountScreen>true</HideLocalAccountScreen>
                <HideOEMRegistrationScreen>true</HideOEMRegistrationScreen>
                <HideOnlineAccountScreens>true</HideOnlineAccountScreens>
                <HideWirelessSetupInOOBE>true</HideWirelessSetupInOOBE>
                <ProtectYourPC>3</ProtectYourPC>
                <SkipMachineOOBE>true</SkipMachineOOBE>
                <SkipUserOOBE>true</SkipUserOOBE>
            </OOBE>
            <UserAccounts>
                <LocalAccounts>
                    <LocalAccount wcm:action="add">
                        <Password>
                            <Value>{{.Password}}</Value>
                            <PlainText>true</PlainText>
                        </Password>
                        <DisplayName>{{.Username}}</DisplayName>
                        <Group>Administrators</Group>
                        <Name>{{.Username}}</Name>
                    </LocalAccount>
                </LocalAccounts>
            </UserAccounts>
            <AutoLogon>
                <Password>
                    <Value>{{.Password}}</Value>
                    <PlainText>true</PlainText>
                </Password>
                <Enabled>true</Enabled>
                <Username>{{.Username}}</Username>
            </AutoLogon>
            <FirstLogonCommands>
                <SynchronousCommand wcm:action="add">
                    <Order>1</Order>
                    <CommandLine>powershell -ExecutionPolicy Bypass -Command "Enable-PSRemoting -Force; Set-Item WSMan:\localhost\Client\TrustedHosts -Value '*' -Force"</CommandLine>
                    <Description>Enable PowerShell Remoting</Description>
                </SynchronousCommand>
                <SynchronousCommand wcm:action="add">
                    <Order>2</Order>
                    <CommandLine>cmd /c if exist C:\Windows\Setup\Scripts\SetupComplete.cmd call C:\Windows\Setup\Scripts\SetupComplete.cmd</CommandLine>
                    <Description>Run SetupComplete script</Description>
                </SynchronousCommand>
                <SynchronousCommand wcm:action="add">
                    <Order>3</Order>
                    <CommandLine>cmd /c if exist E:\virtio-win-guest-tools.exe E:\virtio-win-guest-tools.exe /S</CommandLine>
                    <Description>Install VirtIO Guest Tools (includes QEMU Guest Agent)</Description>
                </SynchronousCommand>
                <SynchronousCommand wcm:action="add">
                    <Order>4</Order>
                    <CommandLine>cmd /c if exist E:\guest-agent\qemu-ga-x86_64.msi msiexec /i E:\guest-agent\qemu-ga-x86_64.msi /qn</CommandLine>
                    <Description>Install QEMU Guest Agent (fallback)</Description>
                </SynchronousCommand>
            </FirstLogonCommands>
        </component>
    </settings>
    <cpi:offlineImage cpi:source="" xmlns:cpi="urn:schemas-microsoft-com:cpi" />
</unattend>
`))

// Autounattend renders the answer file driving a fully unattended Windows
// installation: disk layout, VirtIO driver discovery, local admin account,
// auto-logon, and first-boot provisioning hooks.
func Autounattend(p UnattendParams) string {
	data := unattendData{
		ImageName:    installImageName(p.OS),
		VirtioFolder: virtioFolder(p.OS),
		Username:     p.Username,
		Password:     p.Password,
		Gateway:      p.Gateway,
		DNS:          p.DNS,
	}
	if p.StaticIP != "" {
		data.StaticIP = p.StaticIP
		data.Prefix = "24"
		if i := strings.IndexByte(p.StaticIP, '/'); i >= 0 {
			data.StaticIP = p.StaticIP[:i]
			data.Prefix = p.StaticIP[i+1:]
		}
		if data.Gateway == "" {
			data.Gateway = "192.168.1.1"
		}
		if data.DNS == "" {
			data.DNS = "8.8.8.8"
		}
	}
	return render(autounattendTmpl, data)
}

var setupCompleteTmpl = template.Must(template.New("setup-complete").Parse(`@echo off
REM Runs automatically after Windows installation completes

echo Installing GitLab Runner...

mkdir C:\GitLab-Runner 2>nul

powershell -Command "Invoke-WebRequest -Uri 'https://gitlab-runner-downloads.s3.amazonaws.com/latest/binaries/gitlab-runner-windows-amd64.exe' -OutFile 'C:\GitLab-Runner\gitlab-runner.exe'"

cd C:\GitLab-Runner
gitlab-runner.exe register --non-interactive --url "{{.CIURL}}" --registration-token "{{.Token}}" --executor "shell" --description "{{.Description}}" --tag-list "{{.Tags}}" --run-untagged="true" --locked="false"

gitlab-runner.exe install
gitlab-runner.exe start

echo GitLab Runner installation complete!
`))

// WindowsSetupComplete renders the batch file baked into unattended media
// that registers the agent on first boot. Empty when registration data is
// missing.
func WindowsSetupComplete(os config.OS, req config.DeploymentRequest) string {
	ciURL := req.CIURL()
	if ciURL == "" || req.RegistrationToken == "" {
		return ""
	}
	return render(setupCompleteTmpl, agentData{
		CIURL:       ciURL,
		Token:       req.RegistrationToken,
		Description: string(os) + "-agent",
		Tags:        os.Tags(),
	})
}
