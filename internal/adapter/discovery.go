// Package adapter identifies the render adapters present on the benchmark
// host so runs can be labeled with the hardware they executed on.
package adapter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const drmClassPath = "class/drm"

// Info describes a render adapter discovered via sysfs.
type Info struct {
	ID         string `json:"id"`
	PCI        string `json:"pci"`
	PCIID      string `json:"pci_id"`
	Name       string `json:"name"`
	Driver     string `json:"driver"`
	RenderNode string `json:"render_node"`
}

// Discover enumerates DRM cards exposed via sysfs under the provided root.
// A missing DRM class directory is not an error; it simply means the host
// has no discoverable adapters.
func Discover(root string, logger *slog.Logger) ([]Info, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sysRoot, err := os.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("open sysfs root: %w", err)
	}
	defer sysRoot.Close()

	entries, err := fs.ReadDir(sysRoot.FS(), drmClassPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			logger.Warn("drm class path missing", "path", filepath.Join(root, drmClassPath))
			return nil, nil
		}
		return nil, fmt.Errorf("read drm class dir: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if !isCardEntry(name) {
			continue
		}
		if !entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		cardRoot, err := sysRoot.OpenRoot(filepath.Join(drmClassPath, name))
		if err != nil {
			logger.Warn("failed to open card root", "card", name, "err", err)
			continue
		}

		info, err := loadAdapterInfo(name, cardRoot)
		if closeErr := cardRoot.Close(); closeErr != nil {
			logger.Debug("failed to close card root", "card", name, "err", closeErr)
		}
		if err != nil {
			logger.Warn("failed to load adapter info", "card", name, "err", err)
			continue
		}
		infos = append(infos, info)
	}

	return infos, nil
}

func loadAdapterInfo(cardID string, cardRoot *os.Root) (Info, error) {
	deviceRoot, err := cardRoot.OpenRoot("device")
	if err != nil {
		return Info{}, fmt.Errorf("open device root: %w", err)
	}
	defer deviceRoot.Close()

	info := Info{ID: cardID}

	var subVendor, subDevice string
	if data, err := deviceRoot.ReadFile("uevent"); err == nil {
		text := string(data)
		info.PCI = parseKeyValue(text, "PCI_SLOT_NAME")
		info.PCIID = parseKeyValue(text, "PCI_ID")
		info.Driver = parseKeyValue(text, "DRIVER")
		if subsys := parseKeyValue(text, "PCI_SUBSYS_ID"); subsys != "" {
			if parts := strings.SplitN(subsys, ":", 2); len(parts) == 2 {
				subVendor = parts[0]
				subDevice = parts[1]
			}
		}
	}

	if info.PCIID == "" {
		if vendor, err := readTrim(deviceRoot, "vendor"); err == nil {
			if device, err := readTrim(deviceRoot, "device"); err == nil {
				info.PCIID = strings.TrimPrefix(vendor, "0x") + ":" + strings.TrimPrefix(device, "0x")
			}
		}
	}

	if subVendor == "" {
		subVendor, _ = readTrim(deviceRoot, "subsystem_vendor")
	}
	if subDevice == "" {
		subDevice, _ = readTrim(deviceRoot, "subsystem_device")
	}

	vendorID, deviceID := splitPCIIdentifier(info.PCIID)
	info.Name = lookupAdapterName(vendorID, deviceID, subVendor, subDevice)
	if info.Name == "" {
		info.Name = info.Driver
	}

	info.RenderNode = findRenderNode(deviceRoot)

	return info, nil
}

func findRenderNode(deviceRoot *os.Root) string {
	drmRoot, err := deviceRoot.OpenRoot("drm")
	if err != nil {
		return ""
	}
	defer drmRoot.Close()

	entries, err := fs.ReadDir(drmRoot.FS(), ".")
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if name := entry.Name(); strings.HasPrefix(name, "renderD") {
			return filepath.Join("/dev/dri", name)
		}
	}
	return ""
}

// isCardEntry accepts plain card directories ("card0") and rejects
// connector entries ("card0-DP-1").
func isCardEntry(name string) bool {
	if !strings.HasPrefix(name, "card") || strings.ContainsRune(name, '-') {
		return false
	}
	suffix := name[len("card"):]
	if suffix == "" {
		return false
	}
	for _, r := range suffix {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func parseKeyValue(data, key string) string {
	prefix := key + "="
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

func readTrim(root *os.Root, name string) (string, error) {
	data, err := root.ReadFile(name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func splitPCIIdentifier(pciID string) (vendorID, deviceID string) {
	parts := strings.SplitN(pciID, ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
