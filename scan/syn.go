package scan

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"portsniffer/types"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	// needed for the gateway MAC discovery
	"github.com/jackpal/gateway"
	"github.com/mdlayher/arp"
)

const defaultSynTimeout = time.Second

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// SynProber sends a bare SYN per port and classifies the reply without ever
// completing the handshake. It needs raw socket privileges and only handles
// IPv4 targets.
type SynProber struct {
	iface   net.Interface
	srcIP   net.IP
	srcPort uint16
	dstMAC  net.HardwareAddr
	timeout time.Duration

	sendMu     sync.Mutex
	handleSend *pcap.Handle
}

func NewSynProber(ctx context.Context, host net.IP, ifaceName string, timeout time.Duration) (*SynProber, error) {
	if host.To4() == nil {
		return nil, errors.Errorf("SYN scan supports IPv4 targets only, got %s", host)
	}
	if timeout <= 0 {
		timeout = defaultSynTimeout
	}

	iface, err := selectInterface(ifaceName)
	if err != nil {
		return nil, err
	}
	log.Info().Str("iface", iface.Name).Msg("using interface")

	srcIP, err := getInterfaceIP(iface)
	if err != nil {
		return nil, err
	}

	srcPort, err := getLocalPort()
	if err != nil {
		return nil, err
	}

	handleSend, err := pcap.OpenLive(iface.Name, 1600, false, time.Millisecond*10)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open device")
	}

	return &SynProber{
		iface:      iface,
		srcIP:      srcIP,
		srcPort:    srcPort,
		dstMAC:     getNextHopMAC(ctx, iface),
		timeout:    timeout,
		handleSend: handleSend,
	}, nil
}

func (s *SynProber) Close() {
	s.handleSend.Close()
}

func (s *SynProber) Probe(ctx context.Context, host net.IP, dstPort uint16) types.ScanState {
	filter := createFilterString(host, dstPort, s.srcPort)

	handleListen, err := pcapListen(s.iface.Name, filter)
	if err != nil {
		log.Debug().Err(err).Uint16("port", dstPort).Msg("listener not started")
		return types.UNKNOWN
	}
	defer handleListen.Close()

	if err := s.sendSynPacket(host, dstPort); err != nil {
		log.Debug().Err(err).Uint16("port", dstPort).Msg("SYN not sent")
		return types.UNKNOWN
	}

	return receivePacketTCP(ctx, handleListen, s.timeout)
}

func (s *SynProber) sendSynPacket(host net.IP, dstPort uint16) error {
	buf, err := createSynPacket(s.srcIP, host, s.iface.HardwareAddr, s.dstMAC, s.srcPort, dstPort)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.handleSend.WritePacketData(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write packet data")
	}

	return nil
}

func createSynPacket(
	srcIP net.IP,
	dstIP net.IP,
	srcMAC net.HardwareAddr,
	dstMAC net.HardwareAddr,
	srcPort uint16,
	dstPort uint16,
) (gopacket.SerializeBuffer, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	ethH := createEthHeader(srcMAC, dstMAC)
	ipH := createIpHeader(srcIP, dstIP)
	tcpH := createTcpHeader(srcPort, dstPort)
	if err := tcpH.SetNetworkLayerForChecksum(ipH); err != nil {
		return nil, errors.Wrap(err, "failed to set checksum layer")
	}

	if err := gopacket.SerializeLayers(buf, opts, ethH, ipH, tcpH); err != nil {
		return nil, errors.Wrap(err, "failed to serialize layers")
	}

	return buf, nil
}

func createIpHeader(srcIP, dstIP net.IP) *layers.IPv4 {
	return &layers.IPv4{
		DstIP:    dstIP.To4(),
		SrcIP:    srcIP.To4(),
		Protocol: layers.IPProtocolTCP,
		Version:  4,
		TTL:      64,
		IHL:      5,
		Id:       33333,
	}
}

func createTcpHeader(srcPort, dstPort uint16) *layers.TCP {
	return &layers.TCP{
		DstPort: layers.TCPPort(dstPort),
		SrcPort: layers.TCPPort(srcPort),
		SYN:     true,
		Seq:     123456789,
		Window:  1024,
		Options: []layers.TCPOption{
			{
				OptionType:   layers.TCPOptionKindMSS,
				OptionLength: 4,
				OptionData:   []byte{0x05, 0xb4},
			},
		},
	}
}

func createEthHeader(srcMAC, dstMAC net.HardwareAddr) *layers.Ethernet {
	return &layers.Ethernet{
		DstMAC:       dstMAC,
		SrcMAC:       srcMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
}

// createFilterString matches only replies from host:dstPort to our source port.
func createFilterString(host net.IP, dstPort, srcPort uint16) string {
	return fmt.Sprintf(
		"tcp and src host %s and src port %d and dst port %d",
		host.String(), dstPort, srcPort,
	)
}

func pcapListen(ifaceName, filter string) (*pcap.Handle, error) {
	handle, err := pcap.OpenLive(ifaceName, 1600, false, time.Millisecond*10)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open listener")
	}

	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, errors.Wrapf(err, "failed to set filter %q", filter)
	}

	return handle, nil
}

func receivePacketTCP(ctx context.Context, handle *pcap.Handle, t time.Duration) types.ScanState {
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	return waitForPacketTCP(ctx, packetSource.Packets(), t)
}

func waitForPacketTCP(
	ctx context.Context,
	packets <-chan gopacket.Packet,
	timeout time.Duration,
) types.ScanState {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case packet, ok := <-packets:
			if !ok {
				return types.FILTERED
			}
			if packet == nil {
				continue
			}

			tcpLayer := packet.Layer(layers.LayerTypeTCP)
			if tcpLayer == nil {
				continue
			}
			tcp, _ := tcpLayer.(*layers.TCP)

			if tcp.SYN && tcp.ACK {
				return types.OPEN
			}

			if tcp.RST {
				return types.CLOSED
			}
		case <-timer.C:
			return types.FILTERED
		case <-ctx.Done():
			return types.UNKNOWN
		}
	}
}

// getLocalPort borrows an ephemeral port from the kernel to use as the SYN
// source port.
func getLocalPort() (uint16, error) {
	var port uint16

	err := retry.Do(func() error {
		addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
		if err != nil {
			return err
		}

		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return err
		}
		defer l.Close()

		port = uint16(l.Addr().(*net.TCPAddr).Port)
		return nil
	}, retry.Attempts(4), retry.Delay(10*time.Millisecond))
	if err != nil {
		return 0, errors.Wrap(err, "failed to get local port")
	}

	return port, nil
}

func getNextHopMAC(ctx context.Context, iface net.Interface) net.HardwareAddr {
	gw, err := gateway.DiscoverGateway()
	if err != nil {
		log.Warn().Err(err).Msg("failed to get gateway")
		return broadcastMAC
	}

	mac, err := sendARP(ctx, gw, iface)
	if err != nil {
		log.Warn().Err(err).Str("gateway", gw.String()).Msg("failed to resolve next hop MAC")
		return broadcastMAC
	}

	return mac
}

func sendARP(ctx context.Context, gw net.IP, iface net.Interface) (net.HardwareAddr, error) {
	ip, ok := netip.AddrFromSlice(gw.To4())
	if !ok {
		return nil, errors.Errorf("gateway %s is not IPv4", gw)
	}

	client, err := arp.Dial(&iface)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial ARP")
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = client.SetDeadline(deadline)
	} else {
		_ = client.SetDeadline(time.Now().Add(3 * time.Second))
	}

	mac, err := client.Resolve(ip)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve MAC")
	}

	return mac, nil
}
