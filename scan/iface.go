package scan

import (
	"net"

	"github.com/pkg/errors"
)

func selectInterface(raw_interface string) (net.Interface, error) {
	if raw_interface != "" {
		iface, err := net.InterfaceByName(raw_interface)
		if err != nil {
			return net.Interface{}, errors.Wrapf(err, "interface %q", raw_interface)
		}
		return *iface, nil
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return net.Interface{}, errors.Wrap(err, "failed to list interfaces")
	}

	return pickInterface(interfaces)
}

// pickInterface walks the list in reverse so loopback is only chosen when
// nothing else is running.
func pickInterface(interfaces []net.Interface) (net.Interface, error) {
	for i := len(interfaces) - 1; i >= 0; i-- {
		if interfaces[i].Flags&net.FlagRunning == net.FlagRunning {
			return interfaces[i], nil
		}
	}
	return net.Interface{}, errors.New("no interface found")
}

func getInterfaceIP(iface net.Interface) (net.IP, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get interface addresses")
	}

	ip := firstIPv4(addrs)
	if ip == nil {
		return nil, errors.Errorf("interface %s has no IPv4 address", iface.Name)
	}
	return ip, nil
}

func firstIPv4(addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}
