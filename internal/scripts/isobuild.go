package scripts

import (
	"encoding/base64"
	"fmt"
	"text/template"
)

// ISOStoragePath is where the "local" storage pool keeps install media on
// the node's filesystem.
const ISOStoragePath = "/var/lib/vz/template/iso"

type isoBuildData struct {
	WorkDir          string
	BaseISO          string
	OutputISO        string
	AutounattendB64  string
	SetupCompleteB64 string
}

var unattendedISOTmpl = template.Must(template.New("unattended-iso-build").Parse(`#!/bin/bash
set -e

which 7z >/dev/null 2>&1 || apt-get install -y p7zip-full
which genisoimage >/dev/null 2>&1 || apt-get install -y genisoimage

WORK_DIR="{{.WorkDir}}"
BASE_ISO="{{.BaseISO}}"
OUTPUT_ISO="{{.OutputISO}}"

mkdir -p "$WORK_DIR"
cd "$WORK_DIR"

echo "Extracting base ISO..."
7z x -y "$BASE_ISO" -o"$WORK_DIR/iso_contents" >/dev/null

echo "{{.AutounattendB64}}" | base64 -d > "$WORK_DIR/iso_contents/autounattend.xml"

if [ -n "{{.SetupCompleteB64}}" ]; then
    mkdir -p "$WORK_DIR/iso_contents/\$OEM\$/\$\$/Setup/Scripts"
    echo "{{.SetupCompleteB64}}" | base64 -d > "$WORK_DIR/iso_contents/\$OEM\$/\$\$/Setup/Scripts/SetupComplete.cmd"
fi

BOOT_IMG=""
EFI_IMG=""
if [ -f "$WORK_DIR/iso_contents/boot/etfsboot.com" ]; then
    BOOT_IMG="$WORK_DIR/iso_contents/boot/etfsboot.com"
fi
if [ -f "$WORK_DIR/iso_contents/efi/microsoft/boot/efisys.bin" ]; then
    EFI_IMG="$WORK_DIR/iso_contents/efi/microsoft/boot/efisys.bin"
fi

echo "Creating bootable ISO..."
cd "$WORK_DIR/iso_contents"

if [ -n "$EFI_IMG" ] && [ -n "$BOOT_IMG" ]; then
    genisoimage -b boot/etfsboot.com -no-emul-boot -boot-load-size 8 \
        -eltorito-alt-boot -e efi/microsoft/boot/efisys.bin -no-emul-boot \
        -iso-level 4 -UDF -o "$OUTPUT_ISO" . 2>/dev/null
elif [ -n "$BOOT_IMG" ]; then
    genisoimage -b boot/etfsboot.com -no-emul-boot -boot-load-size 8 \
        -iso-level 4 -UDF -o "$OUTPUT_ISO" . 2>/dev/null
else
    genisoimage -iso-level 4 -UDF -o "$OUTPUT_ISO" . 2>/dev/null
fi

rm -rf "$WORK_DIR"

echo "SUCCESS: $OUTPUT_ISO"
`))

// UnattendedISOBuild renders the host-side script that repacks a Windows
// install ISO with an answer file (and optional SetupComplete.cmd) into a
// bootable unattended image. Success is signalled by "SUCCESS:" on stdout.
func UnattendedISOBuild(workDir, baseISOName, outputISOName, autounattendXML, setupComplete string) string {
	data := isoBuildData{
		WorkDir:         workDir,
		BaseISO:         fmt.Sprintf("%s/%s", ISOStoragePath, baseISOName),
		OutputISO:       fmt.Sprintf("%s/%s", ISOStoragePath, outputISOName),
		AutounattendB64: base64.StdEncoding.EncodeToString([]byte(autounattendXML)),
	}
	if setupComplete != "" {
		data.SetupCompleteB64 = base64.StdEncoding.EncodeToString([]byte(setupComplete))
	}
	return render(unattendedISOTmpl, data)
}

var answerISOTmpl = template.Must(template.New("answer-iso-build").Parse(`#!/bin/bash
set -e

ISO_PATH="{{.OutputISO}}"
WORK_DIR=$(mktemp -d)

if ! command -v genisoimage &> /dev/null && ! command -v mkisofs &> /dev/null; then
    echo "Installing genisoimage..."
    apt-get update -qq && apt-get install -y -qq genisoimage >/dev/null 2>&1
fi

echo "{{.AutounattendB64}}" | base64 -d > "$WORK_DIR/autounattend.xml"

if command -v genisoimage &> /dev/null; then
    genisoimage -o "$ISO_PATH" -V "AUTOUNATTEND" -J -r "$WORK_DIR" 2>/dev/null
elif command -v mkisofs &> /dev/null; then
    mkisofs -o "$ISO_PATH" -V "AUTOUNATTEND" -J -r "$WORK_DIR" 2>/dev/null
else
    echo "ERROR: Failed to install or find ISO creation tools"
    exit 1
fi

rm -rf "$WORK_DIR"

echo "SUCCESS: $ISO_PATH"
`))

// AnswerISOBuild renders the host-side script that packs a lone
// autounattend.xml into a small ISO, for attaching next to user-selected
// install media.
func AnswerISOBuild(outputISOName, autounattendXML string) string {
	return render(answerISOTmpl, isoBuildData{
		OutputISO:       fmt.Sprintf("%s/%s", ISOStoragePath, outputISOName),
		AutounattendB64: base64.StdEncoding.EncodeToString([]byte(autounattendXML)),
	})
}
